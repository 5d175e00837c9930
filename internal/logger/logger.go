// Package logger configures the process-wide structured logger.  Services
// and background jobs log through slog; plain stdlib log remains only for
// fatal startup errors in main.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

var defaultLogger *slog.Logger

// Init builds the global logger.  Level is one of DEBUG/INFO/WARN/ERROR
// (case-insensitive, default INFO); format "json" selects the JSON handler,
// anything else the text handler.
func Init(level, format string) {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// Get returns the configured logger, initializing a default one if Init
// has not been called (tests, ad-hoc tools).
func Get() *slog.Logger {
	if defaultLogger == nil {
		Init("INFO", "text")
	}
	return defaultLogger
}
