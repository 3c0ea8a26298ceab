package plaintext

import (
	"context"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/kirillkom/bafoeg-assistant/internal/core/ports"
)

// Extractor reads UTF-8 text files of the knowledge base.
type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, key string) (string, error) {
	reader, err := e.storage.Open(ctx, key)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}

	if !utf8.Valid(raw) {
		return "", fmt.Errorf("source document is not valid UTF-8: %s", key)
	}
	return string(raw), nil
}
