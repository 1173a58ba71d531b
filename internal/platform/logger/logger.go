package logger

import (
	"io"
	"log/slog"
	"strings"
)

// New builds a structured logger writing to w. format is "json" or "text";
// debug lowers the level to debug and adds source locations.
func New(w io.Writer, level, format string, debug bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if debug {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
