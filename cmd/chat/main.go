package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/bafoeg-assistant/internal/adapters/cli"
	"github.com/kirillkom/bafoeg-assistant/internal/bootstrap"
	"github.com/kirillkom/bafoeg-assistant/internal/config"
	"github.com/kirillkom/bafoeg-assistant/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	// Logs go to stderr so they do not interleave with the conversation.
	logger := logging.NewTextLogger(os.Stderr, "bafoeg-chat", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewChat(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap error: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := cli.NewREPL(app.Session, os.Stdin, os.Stdout).Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "chat error: %v\n", err)
		os.Exit(1)
	}
}
