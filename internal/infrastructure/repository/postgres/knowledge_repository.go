package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kirillkom/bafoeg-assistant/internal/core/domain"
	"github.com/kirillkom/bafoeg-assistant/internal/core/ports"
)

const schemaLockKey = int64(2026101501)

// KnowledgeRepository stores the knowledge index as one row per document.
// position preserves the index order, which breaks score ties.
type KnowledgeRepository struct {
	db  *sql.DB
	now func() time.Time
}

var (
	_ ports.KnowledgeIndexSource = (*KnowledgeRepository)(nil)
	_ ports.KnowledgeIndexSink   = (*KnowledgeRepository)(nil)
)

func NewKnowledgeRepository(db *sql.DB) *KnowledgeRepository {
	return &KnowledgeRepository{db: db, now: time.Now}
}

func (r *KnowledgeRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across backend/indexer startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS knowledge_documents (
	position INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	file TEXT NOT NULL,
	keywords JSONB NOT NULL DEFAULT '[]'::jsonb,
	preview TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_knowledge_documents_file ON knowledge_documents(file);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *KnowledgeRepository) Load(ctx context.Context) ([]domain.KnowledgeDocument, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT name, url, file, keywords, preview
FROM knowledge_documents
ORDER BY position ASC
`)
	if err != nil {
		return nil, fmt.Errorf("query knowledge documents: %w", err)
	}
	defer rows.Close()

	docs := make([]domain.KnowledgeDocument, 0)
	for rows.Next() {
		var doc domain.KnowledgeDocument
		var keywordsRaw []byte
		if err := rows.Scan(&doc.Name, &doc.URL, &doc.File, &keywordsRaw, &doc.Preview); err != nil {
			return nil, fmt.Errorf("scan knowledge document: %w", err)
		}
		if err := json.Unmarshal(keywordsRaw, &doc.Keywords); err != nil {
			return nil, fmt.Errorf("unmarshal keywords of %s: %w", doc.File, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate knowledge documents: %w", err)
	}
	return docs, nil
}

// Replace swaps the whole index in one transaction.
func (r *KnowledgeRepository) Replace(ctx context.Context, docs []domain.KnowledgeDocument) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM knowledge_documents`); err != nil {
		return fmt.Errorf("clear knowledge documents: %w", err)
	}

	updatedAt := r.now().UTC()
	for i, doc := range docs {
		keywords := doc.Keywords
		if keywords == nil {
			keywords = []string{}
		}
		keywordsJSON, err := json.Marshal(keywords)
		if err != nil {
			return fmt.Errorf("marshal keywords of %s: %w", doc.File, err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO knowledge_documents (position, name, url, file, keywords, preview, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, i, doc.Name, doc.URL, doc.File, keywordsJSON, doc.Preview, updatedAt); err != nil {
			return fmt.Errorf("insert knowledge document %s: %w", doc.File, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace tx: %w", err)
	}
	return nil
}
