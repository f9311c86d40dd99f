// Package logging wires log/slog to the console and to weekly rotating JSON files
package logging

import (
	"log/slog"
	"os"

	"github.com/giygas/vaccination-book-api/config"
)

type LoggingService struct {
	Logger         *slog.Logger
	rotatingLogger *RotatingLogger
}

var DefaultLoggingService *LoggingService

// InitLogger initializes the global logger instance with default settings
func InitLogger(logDir string) {
	logger, rl := setupLogger(logDir, slog.LevelInfo, 4, 100*1024*1024)
	DefaultLoggingService = &LoggingService{
		Logger:         logger,
		rotatingLogger: rl,
	}
	slog.SetDefault(DefaultLoggingService.Logger)
}

// InitLoggerWithConfig initializes the global logger from the application configuration
func InitLoggerWithConfig(logDir string, cfg *config.Config) {
	level := GetConsoleLogLevel(cfg.Env, cfg.LogLevel, cfg.Verbose)
	logger, rl := setupLogger(logDir, level, cfg.LogRetentionWeeks, cfg.MaxLogFileSize)
	DefaultLoggingService = &LoggingService{
		Logger:         logger,
		rotatingLogger: rl,
	}
	slog.SetDefault(DefaultLoggingService.Logger)
}

// Close flushes and closes the rotating log file, if any
func Close() error {
	if DefaultLoggingService == nil || DefaultLoggingService.rotatingLogger == nil {
		return nil
	}
	return DefaultLoggingService.rotatingLogger.Close()
}

// logger returns the global logger or a console fallback when uninitialised
func logger(level slog.Level) *slog.Logger {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
	}
	return DefaultLoggingService.Logger
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	logger(slog.LevelInfo).Info(msg, args...)
}

func Error(msg string, args ...any) {
	logger(slog.LevelError).Error(msg, args...)
}

func Warn(msg string, args ...any) {
	logger(slog.LevelWarn).Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	logger(slog.LevelDebug).Debug(msg, args...)
}
