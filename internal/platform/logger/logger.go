// Package logger provides structured logging functionality for the engine.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/parlo-app/parlo/internal/config"
)

// Setup initializes the engine's logging system from the provided
// configuration. It creates a structured JSON logger at the configured
// level, sets it as the default logger, and returns it.
func Setup(cfg config.LoggingConfig) *slog.Logger {
	return SetupWithWriter(cfg, os.Stderr)
}

// SetupWithWriter is Setup with an explicit output, used by tests and
// hosts that redirect engine logs.
func SetupWithWriter(cfg config.LoggingConfig, out io.Writer) *slog.Logger {
	level := parseLevel(cfg.Level, out)

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}

// parseLevel maps the configured level name to a slog.Level,
// case-insensitively. An unknown name falls back to info with a warning.
func parseLevel(name string, out io.Writer) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		tmp := slog.New(slog.NewTextHandler(out, nil))
		tmp.Warn("invalid log level configured, using default level",
			"configured_level", name,
			"default_level", "info")
		return slog.LevelInfo
	}
}
