package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a logger writing JSON to stdout, or text to stderr when format
// is "text". The terminal client uses text so log lines stay off the chat.
func New(service, level, format string) *slog.Logger {
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		return NewTextLogger(os.Stderr, service, level)
	}
	return NewJSONLogger(service, level)
}

func NewJSONLogger(service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler).With("service", service)
}

func NewTextLogger(w io.Writer, service, level string) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler).With("service", service)
}

func parseLevel(level string) slog.Level {
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
