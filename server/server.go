// Package server provides HTTP server management and lifecycle handling for the vaccination book API.
// It wires middleware and routes and shuts the listener down gracefully.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/giygas/vaccination-book-api/config"
	"github.com/giygas/vaccination-book-api/interfaces"
	"github.com/giygas/vaccination-book-api/logging"
	"github.com/giygas/vaccination-book-api/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the HTTP server
type Server struct {
	server      *http.Server
	router      chi.Router
	store       interfaces.ViewStore
	handler     interfaces.HTTPHandler
	rateLimiter *RateLimiter
	config      *config.Config
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, store interfaces.ViewStore, handler interfaces.HTTPHandler) *Server {
	router := chi.NewRouter()

	server := &Server{
		server: &http.Server{
			Handler:      router,
			Addr:         cfg.Address + ":" + cfg.Port,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: cfg.UpstreamTimeout + 15*time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router:      router,
		store:       store,
		handler:     handler,
		rateLimiter: NewRateLimiter(),
		config:      cfg,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func requestLogger() *slog.Logger {
	if logging.DefaultLoggingService != nil && logging.DefaultLoggingService.Logger != nil {
		return logging.DefaultLoggingService.Logger
	}
	return slog.Default()
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	if s.config.Env == config.EnvProduction {
		s.router.Use(BlockDirectAccessMiddleware) // Before RealIPMiddleware to see the original RemoteAddr
	}
	s.router.Use(RealIPMiddleware)
	s.router.Use(logging.LoggingMiddleware(requestLogger()))
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics.Metrics)
	s.router.Use(RequestSizeMiddleware(s.config))
	s.router.Use(s.rateLimiter.Handler)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/children/{childId}/vaccination-book", s.handler.ServeVaccinationBook)

		r.Post("/views", s.handler.CreateView)
		r.Get("/views/{viewId}", s.handler.GetView)
		r.Patch("/views/{viewId}", s.handler.UpdateView)
		r.Delete("/views/{viewId}", s.handler.DeleteView)
		r.Post("/views/{viewId}/refetch", s.handler.RefetchView)
	})

	s.router.Get("/health", s.handler.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())
}

// Router exposes the configured router, mainly for tests
func (s *Server) Router() chi.Router {
	return s.router
}

// Start starts the server
func (s *Server) Start() error {
	// Start profiling server if in development mode
	if s.config.Env == config.EnvDevelopment {
		s.startProfilingServer()
	}

	logging.Info(fmt.Sprintf("Starting server at: %s:%s", s.config.Address, s.config.Port))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")
	defer s.rateLimiter.Stop()

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		// If graceful shutdown fails, force close
		if err := s.server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete", "views", len(s.store.Views()))
	return nil
}

// startProfilingServer starts the pprof profiling server in development mode
func (s *Server) startProfilingServer() {
	go func() {
		logging.Info("Profiling server started at http://localhost:6060/debug/pprof/")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			logging.Warn("Profiling server failed", "error", err)
		}
	}()
}
