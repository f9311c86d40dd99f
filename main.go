package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/giygas/vaccination-book-api/config"
	"github.com/giygas/vaccination-book-api/data"
	"github.com/giygas/vaccination-book-api/handlers"
	"github.com/giygas/vaccination-book-api/health"
	"github.com/giygas/vaccination-book-api/logging"
	"github.com/giygas/vaccination-book-api/scheduler"
	"github.com/giygas/vaccination-book-api/server"
	"github.com/giygas/vaccination-book-api/vaccineparser"
	"github.com/giygas/vaccination-book-api/validation"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine, the environment may already be set
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file loaded:", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	logging.InitLoggerWithConfig("logs", cfg)
	defer func() {
		if err := logging.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "Failed to close logger:", err)
		}
	}()

	logging.Info("Configuration loaded",
		"env", cfg.Env.String(),
		"upstream", cfg.UpstreamBaseURL,
		"page_size", cfg.BookPageSize,
		"refresh_interval", cfg.RefreshInterval.String())

	validator := validation.NewDataValidator()
	client := vaccineparser.NewClient(cfg.UpstreamBaseURL, cfg.VaccineProfilePath, cfg.UpstreamTimeout, cfg.MaxUpstreamBody)
	store := data.NewDataContainer(client, validator, cfg.BookPageSize)

	healthChecker := health.NewHealthChecker(store, cfg.RefreshInterval)
	handler := handlers.NewHTTPHandler(store, client, validator, healthChecker, cfg.BookPageSize)

	sched := scheduler.NewScheduler(store, cfg.RefreshInterval, cfg.EvictionInterval, cfg.ViewIdleTTL, cfg.UpstreamTimeout)
	if err := sched.Start(); err != nil {
		logging.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}

	srv := server.NewServer(cfg, store, handler)

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case sig := <-quit:
		logging.Info("Received shutdown signal", "signal", sig.String())
	case err := <-serverErr:
		logging.Error("Server failed to start", "error", err)
	}

	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Graceful shutdown failed", "error", err)
	}
}
