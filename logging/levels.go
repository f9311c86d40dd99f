package logging

import (
	"log/slog"
	"strings"

	"github.com/giygas/vaccination-book-api/config"
)

// parseLogLevel maps a LOG_LEVEL value to a slog level, defaulting to info
func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetConsoleLogLevel picks the console level for an environment.
// Test runs stay quiet unless verbose, whatever LOG_LEVEL says.
func GetConsoleLogLevel(env config.Environment, logLevelStr string, verbose bool) slog.Level {
	if env == config.EnvTest {
		if verbose {
			return slog.LevelInfo
		}
		return slog.LevelError
	}

	if logLevelStr != "" {
		return parseLogLevel(logLevelStr)
	}

	switch env {
	case config.EnvProduction, config.EnvStaging:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// GetFileLogLevel returns the level for the rotating file handler.
// Files always keep debug output for post-mortem analysis.
func GetFileLogLevel() slog.Level {
	return slog.LevelDebug
}
