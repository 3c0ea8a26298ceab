package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kirillkom/bafoeg-assistant/internal/config"
	"github.com/kirillkom/bafoeg-assistant/internal/core/domain"
	"github.com/kirillkom/bafoeg-assistant/internal/core/ports"
	"github.com/kirillkom/bafoeg-assistant/internal/core/usecase"
	"github.com/kirillkom/bafoeg-assistant/internal/infrastructure/backend"
	"github.com/kirillkom/bafoeg-assistant/internal/infrastructure/credential"
	"github.com/kirillkom/bafoeg-assistant/internal/infrastructure/indexing"
	"github.com/kirillkom/bafoeg-assistant/internal/infrastructure/knowledge"
	"github.com/kirillkom/bafoeg-assistant/internal/infrastructure/llm/openrouter"
	"github.com/kirillkom/bafoeg-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/bafoeg-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/bafoeg-assistant/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/bafoeg-assistant/internal/observability/metrics"
)

// ChatApp wires one terminal chat session.
type ChatApp struct {
	Config  config.Config
	Session *usecase.ChatSession

	closeFn func()
}

func NewChat(ctx context.Context, cfg config.Config, logger *slog.Logger) (*ChatApp, error) {
	weights, err := config.LoadScoringProfile(cfg.ScoringProfile)
	if err != nil {
		return nil, err
	}

	location, source := openIndexSource(ctx, cfg, logger)
	index := usecase.LoadKnowledgeIndex(ctx, source, logger)

	storage, err := localfs.NewWithMode(cfg.CredentialDir, 0o600)
	if err != nil {
		_ = location.Close()
		return nil, fmt.Errorf("init credential storage: %w", err)
	}

	var backendClient ports.BackendClient
	if cfg.BackendURL != "" {
		backendClient = backend.New(cfg.BackendURL, &http.Client{})
	}

	session := usecase.NewChatSession(
		newGateway(cfg, logger),
		backendClient,
		credential.NewStore(storage),
		index,
		usecase.SessionOptions{
			HistoryLimit:     cfg.HistoryLimit,
			ProbeTimeout:     cfg.BackendProbeTimeout,
			CredentialPrefix: cfg.CredentialPrefix,
			Weights:          weights,
			Logger:           logger,
		},
	)

	return &ChatApp{
		Config:  cfg,
		Session: session,
		closeFn: func() { _ = location.Close() },
	}, nil
}

func (a *ChatApp) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// BackendApp wires the stateless backend service.
type BackendApp struct {
	Config       config.Config
	Chat         *usecase.BackendChatUseCase
	Metrics      *metrics.HTTPServerMetrics
	IndexMetrics *metrics.IndexMetrics

	events *nats.Queue
	source ports.KnowledgeIndexSource
	logger *slog.Logger

	closeFn func()
}

const backendService = "bafoeg-backend"

func NewBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*BackendApp, error) {
	weights, err := config.LoadScoringProfile(cfg.ScoringProfile)
	if err != nil {
		return nil, err
	}

	location, source := openIndexSource(ctx, cfg, logger)
	index := usecase.LoadKnowledgeIndex(ctx, source, logger)

	httpMetrics := metrics.NewHTTPServerMetrics(backendService)
	indexMetrics := metrics.NewIndexMetrics(httpMetrics.Registry(), backendService)
	indexMetrics.SetDocuments(index.Len())

	app := &BackendApp{
		Config:       cfg,
		Chat:         usecase.NewBackendChatUseCase(newGateway(cfg, logger), index, weights, cfg.OpenRouterAPIKey),
		Metrics:      httpMetrics,
		IndexMetrics: indexMetrics,
		source:       source,
		logger:       logger,
	}

	if cfg.NATSURL != "" {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			Name:   backendService,
			Logger: logger,
		})
		if err != nil {
			_ = location.Close()
			return nil, fmt.Errorf("init index events: %w", err)
		}
		app.events = queue
	}

	app.closeFn = func() {
		if app.events != nil {
			app.events.Close()
		}
		_ = location.Close()
	}
	return app, nil
}

// WatchIndexEvents reloads the index whenever a rebuild is announced. It
// blocks until ctx is done and returns at once when no broker is configured.
func (a *BackendApp) WatchIndexEvents(ctx context.Context) error {
	if a.events == nil || a.source == nil {
		return nil
	}
	return a.events.SubscribeIndexRebuilt(ctx, a.reloadIndex)
}

// reloadIndex reads the configured source again. The announced location is
// only logged.
func (a *BackendApp) reloadIndex(ctx context.Context, location string) error {
	started := time.Now()
	count, err := a.Chat.Reload(ctx, a.source)
	a.IndexMetrics.FinishReload(backendService, time.Since(started), count, err)
	if err != nil {
		return err
	}
	a.logger.Info("knowledge_index_reloaded", "documents", count, "announced_location", location)
	return nil
}

func (a *BackendApp) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// IndexerApp wires the knowledge base maintenance commands.
type IndexerApp struct {
	Config  config.Config
	Storage *localfs.Storage
	Builder *indexing.Builder

	events ports.IndexEvents
	queue  *nats.Queue
	logger *slog.Logger
}

func NewIndexer(cfg config.Config, logger *slog.Logger) (*IndexerApp, error) {
	storage, err := localfs.New(cfg.KnowledgeBaseDir)
	if err != nil {
		return nil, fmt.Errorf("init knowledge base storage: %w", err)
	}

	app := &IndexerApp{
		Config:  cfg,
		Storage: storage,
		Builder: indexing.NewBuilder(storage, logger),
		logger:  logger,
	}
	if cfg.NATSURL != "" {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			Name:               "bafoeg-indexer",
			ResilienceExecutor: resilience.NewExecutorWithLogger(resilience.DefaultConfig(), logger),
			Logger:             logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init index events: %w", err)
		}
		app.queue = queue
		app.events = queue
	}
	return app, nil
}

// Rebuilder opens the index sink at location. The returned func releases it.
func (a *IndexerApp) Rebuilder(ctx context.Context, location string) (*usecase.IndexRebuilder, func(), error) {
	opened, err := knowledge.Open(ctx, location, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("open knowledge index %s: %w", location, err)
	}
	if opened.Sink == nil {
		_ = opened.Close()
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "open knowledge index",
			errors.New("remote index locations are read-only"))
	}
	rebuilder := usecase.NewIndexRebuilder(a.Builder, opened.Sink, a.events, location, a.logger)
	return rebuilder, func() { _ = opened.Close() }, nil
}

func (a *IndexerApp) Close() {
	if a.queue != nil {
		a.queue.Close()
	}
}

func openIndexSource(ctx context.Context, cfg config.Config, logger *slog.Logger) (*knowledge.Location, ports.KnowledgeIndexSource) {
	executor := resilience.NewExecutorWithLogger(indexFetchResilience(cfg), logger)
	location, err := knowledge.Open(ctx, cfg.KnowledgeIndex, executor)
	if err != nil {
		logger.Warn("knowledge_index_unavailable", "location", cfg.KnowledgeIndex, "error", err.Error())
		return nil, nil
	}
	return location, location.Source
}

func newGateway(cfg config.Config, logger *slog.Logger) *openrouter.Gateway {
	temperature := float32(cfg.OpenRouterTemperature)
	return openrouter.New(openrouter.Config{
		BaseURL:     cfg.OpenRouterBaseURL,
		Model:       cfg.OpenRouterModel,
		Temperature: &temperature,
		MaxTokens:   cfg.OpenRouterMaxTokens,
		Referer:     cfg.OpenRouterReferer,
		Title:       cfg.OpenRouterTitle,
	}, resilience.NewExecutorWithLogger(completionResilience(cfg), logger))
}

func indexFetchResilience(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	out.RetryMaxAttempts = cfg.IndexFetchRetryMaxAttempts
	out.RetryInitialBackoff = cfg.IndexFetchRetryInitialBackoff
	out.RetryMaxBackoff = cfg.IndexFetchRetryMaxBackoff
	out.BreakerEnabled = cfg.IndexFetchBreakerEnabled
	out.BreakerMinRequests = uint32(max(cfg.IndexFetchBreakerMinRequests, 0))
	out.BreakerFailureRatio = cfg.IndexFetchBreakerFailureRatio
	out.BreakerOpenTimeout = cfg.IndexFetchBreakerOpenTimeout
	return out
}

// completionResilience keeps the breaker and never retries.
func completionResilience(cfg config.Config) resilience.Config {
	out := resilience.CompletionConfig()
	out.BreakerEnabled = cfg.CompletionBreakerEnabled
	out.BreakerMinRequests = uint32(max(cfg.CompletionBreakerMinRequests, 0))
	out.BreakerFailureRatio = cfg.CompletionBreakerFailureRatio
	out.BreakerOpenTimeout = cfg.CompletionBreakerOpenTimeout
	return out
}
