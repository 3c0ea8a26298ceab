package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/bafoeg-assistant/internal/adapters/http"
	"github.com/kirillkom/bafoeg-assistant/internal/bootstrap"
	"github.com/kirillkom/bafoeg-assistant/internal/config"
	"github.com/kirillkom/bafoeg-assistant/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.New("bafoeg-backend", cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err.Error())
		os.Exit(1)
	}
	defer app.Close()

	go func() {
		if err := app.WatchIndexEvents(ctx); err != nil {
			logger.Error("index_events_stopped", "error", err.Error())
		}
	}()

	router := httpadapter.NewRouter(cfg, app.Chat, app.Metrics).Handler()
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("backend_listening", "addr", server.Addr, "knowledge_base_loaded", app.Chat.KnowledgeBaseLoaded())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("backend_server_failed", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("backend_shutdown_failed", "error", err.Error())
	}
}
