package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/kirillkom/bafoeg-assistant/internal/core/domain"
	"github.com/kirillkom/bafoeg-assistant/internal/core/ports"
	"github.com/kirillkom/bafoeg-assistant/internal/infrastructure/storage/localfs"
)

// FileIndex reads and writes knowledge_index.json.
type FileIndex struct {
	storage *localfs.Storage
	key     string
}

var (
	_ ports.KnowledgeIndexSource = (*FileIndex)(nil)
	_ ports.KnowledgeIndexSink   = (*FileIndex)(nil)
)

func NewFileIndex(path string) (*FileIndex, error) {
	storage, err := localfs.New(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	return &FileIndex{storage: storage, key: filepath.Base(path)}, nil
}

func (f *FileIndex) Path() string {
	return f.storage.Path(f.key)
}

func (f *FileIndex) Load(ctx context.Context) ([]domain.KnowledgeDocument, error) {
	reader, err := f.storage.Open(ctx, f.key)
	if err != nil {
		return nil, fmt.Errorf("open knowledge index: %w", err)
	}
	defer reader.Close()
	return Decode(reader)
}

func (f *FileIndex) Replace(ctx context.Context, docs []domain.KnowledgeDocument) error {
	raw, err := Encode(docs)
	if err != nil {
		return err
	}
	if err := f.storage.Save(ctx, f.key, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("write knowledge index: %w", err)
	}
	return nil
}

func Decode(r io.Reader) ([]domain.KnowledgeDocument, error) {
	var docs []domain.KnowledgeDocument
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, fmt.Errorf("decode knowledge index: %w", err)
	}
	if docs == nil {
		docs = []domain.KnowledgeDocument{}
	}
	return docs, nil
}

// Encode renders the index as indented JSON with non-ASCII text kept as is.
func Encode(docs []domain.KnowledgeDocument) ([]byte, error) {
	if docs == nil {
		docs = []domain.KnowledgeDocument{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(docs); err != nil {
		return nil, fmt.Errorf("encode knowledge index: %w", err)
	}
	return buf.Bytes(), nil
}
