package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTextLoggerCarriesServiceAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTextLogger(&buf, "bafoeg-chat", "warn")

	logger.Info("backend_probe")
	logger.Warn("strategy_demoted", "to", "direct-only")

	out := buf.String()
	if strings.Contains(out, "backend_probe") {
		t.Fatalf("info line must be filtered: %s", out)
	}
	if !strings.Contains(out, "service=bafoeg-chat") || !strings.Contains(out, "strategy_demoted") {
		t.Fatalf("unexpected output: %s", out)
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatalf("debug must be disabled at warn level")
	}
}
