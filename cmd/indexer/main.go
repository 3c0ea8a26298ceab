package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/bafoeg-assistant/internal/config"
	"github.com/kirillkom/bafoeg-assistant/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.New("bafoeg-indexer", cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(cfg, logger).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
