package usecase

import (
	"context"
	"log/slog"

	"github.com/kirillkom/bafoeg-assistant/internal/core/domain"
	"github.com/kirillkom/bafoeg-assistant/internal/core/ports"
)

// LoadKnowledgeIndex loads the index once. A missing or broken index is not
// fatal: the failure is logged and an empty index is returned.
func LoadKnowledgeIndex(ctx context.Context, source ports.KnowledgeIndexSource, logger *slog.Logger) *domain.KnowledgeIndex {
	if logger == nil {
		logger = slog.Default()
	}
	if source == nil {
		logger.Warn("knowledge_index_unavailable", "reason", "no source configured")
		return domain.NewKnowledgeIndex(nil)
	}

	docs, err := source.Load(ctx)
	if err != nil {
		logger.Warn("knowledge_index_unavailable", "error", domain.WrapError(domain.ErrIndexUnavailable, "load knowledge index", err).Error())
		return domain.NewKnowledgeIndex(nil)
	}

	index := domain.NewKnowledgeIndex(docs)
	logger.Info("knowledge_index_loaded", "documents", index.Len())
	return index
}
