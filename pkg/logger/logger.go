// Package logger builds log/slog loggers from growcore configuration.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"growcore/pkg/config"
)

// New creates a slog.Logger for the given configuration. The destination
// selects stderr (the default) or stdout; level and format follow ParseLevel
// and Handler semantics.
func New(cfg config.LogConfig) *slog.Logger {
	var w io.Writer = os.Stderr
	if strings.ToLower(cfg.Destination) == "stdout" {
		w = os.Stdout
	}
	return slog.New(Handler(cfg, w))
}

// Handler builds the slog.Handler described by the configuration, writing to
// w. Unknown formats fall back to text.
func Handler(cfg config.LogConfig, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if strings.ToLower(cfg.Format) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// ParseLevel converts a level name to a slog.Level. It accepts debug, info,
// warn or warning, and error, case insensitively. Unknown or empty values
// default to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
