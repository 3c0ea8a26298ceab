package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/bafoeg-assistant/internal/core/domain"
	"github.com/kirillkom/bafoeg-assistant/internal/core/ports"
)

// IndexRebuilder builds the knowledge index from the knowledge base files,
// stores it and announces the new index to running backends.
type IndexRebuilder struct {
	builder  ports.KnowledgeIndexBuilder
	sink     ports.KnowledgeIndexSink
	events   ports.IndexEvents
	location string
	logger   *slog.Logger
}

// NewIndexRebuilder accepts nil events when no broker is configured. location
// is the index address announced to subscribers.
func NewIndexRebuilder(
	builder ports.KnowledgeIndexBuilder,
	sink ports.KnowledgeIndexSink,
	events ports.IndexEvents,
	location string,
	logger *slog.Logger,
) *IndexRebuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexRebuilder{
		builder:  builder,
		sink:     sink,
		events:   events,
		location: location,
		logger:   logger,
	}
}

// Rebuild refuses to replace a stored index with an empty one. A failed
// announcement is logged; the stored index stays valid.
func (r *IndexRebuilder) Rebuild(ctx context.Context) (*domain.IndexBuildReport, error) {
	report, err := r.builder.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("build knowledge index: %w", err)
	}
	if len(report.Documents) == 0 {
		return report, domain.WrapError(domain.ErrInvalidInput, "rebuild knowledge index",
			fmt.Errorf("no readable documents, %d skipped", len(report.Skipped)))
	}

	if err := r.sink.Replace(ctx, report.Documents); err != nil {
		return report, fmt.Errorf("store knowledge index: %w", err)
	}
	r.logger.Info("knowledge_index_rebuilt",
		"documents", len(report.Documents),
		"skipped", len(report.Skipped),
		"keywords", report.TotalKeywords(),
		"location", r.location,
	)

	if r.events != nil {
		if err := r.events.PublishIndexRebuilt(ctx, r.location); err != nil {
			r.logger.Warn("index_event_publish_failed", "location", r.location, "error", err.Error())
		}
	}
	return report, nil
}
