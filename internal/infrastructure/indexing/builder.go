package indexing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/kirillkom/bafoeg-assistant/internal/core/domain"
	"github.com/kirillkom/bafoeg-assistant/internal/core/ports"
	"github.com/kirillkom/bafoeg-assistant/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/bafoeg-assistant/internal/infrastructure/extractor/plaintext"
)

// TextExtractor returns the text content of one knowledge base file.
type TextExtractor interface {
	Extract(ctx context.Context, key string) (string, error)
}

// Builder turns the files listed in url_mapping.json into index documents.
type Builder struct {
	storage    ports.ObjectStorage
	extractors map[string]TextExtractor
	logger     *slog.Logger
}

var _ ports.KnowledgeIndexBuilder = (*Builder)(nil)

func NewBuilder(storage ports.ObjectStorage, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		storage: storage,
		extractors: map[string]TextExtractor{
			".txt": plaintext.NewExtractor(storage),
			".pdf": pdf.NewExtractor(storage),
		},
		logger: logger,
	}
}

// Build processes the mapping in file name order. Files that are missing or
// unreadable are skipped and reported.
func (b *Builder) Build(ctx context.Context) (*domain.IndexBuildReport, error) {
	mapping, err := ReadURLMapping(ctx, b.storage)
	if err != nil {
		return nil, err
	}
	if len(mapping) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "build knowledge index", fmt.Errorf("%s is missing or empty", MappingKey))
	}

	report := &domain.IndexBuildReport{
		Documents: make([]domain.KnowledgeDocument, 0, len(mapping)),
	}
	for _, file := range mapping.Files() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		extractor, ok := b.extractors[strings.ToLower(filepath.Ext(file))]
		if !ok {
			b.logger.Warn("index_file_skipped", "file", file, "reason", "unsupported extension")
			report.Skipped = append(report.Skipped, file)
			continue
		}

		text, err := extractor.Extract(ctx, file)
		if err != nil {
			b.logger.Warn("index_file_skipped", "file", file, "error", err.Error())
			report.Skipped = append(report.Skipped, file)
			continue
		}

		report.Documents = append(report.Documents, domain.KnowledgeDocument{
			Name:     DisplayName(file),
			URL:      mapping[file],
			File:     file,
			Keywords: ExtractKeywords(file, text),
			Preview:  Preview(text),
		})
	}
	return report, nil
}
