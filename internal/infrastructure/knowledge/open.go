package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/kirillkom/bafoeg-assistant/internal/core/ports"
	"github.com/kirillkom/bafoeg-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/bafoeg-assistant/internal/infrastructure/resilience"
)

// Location is an opened index location. Close releases database handles.
type Location struct {
	Source ports.KnowledgeIndexSource
	Sink   ports.KnowledgeIndexSink
	db     *sql.DB
}

func (l *Location) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Open resolves location by scheme: postgres:// and postgresql:// DSNs use
// the knowledge_documents table, http(s) URLs are fetched read-only and
// anything else is a file path.
func Open(ctx context.Context, location string, executor *resilience.Executor) (*Location, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("knowledge index location is empty")
	}

	switch scheme(location) {
	case "postgres", "postgresql":
		db, err := postgres.OpenDB(location)
		if err != nil {
			return nil, err
		}
		repo := postgres.NewKnowledgeRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &Location{Source: repo, Sink: repo, db: db}, nil
	case "http", "https":
		return &Location{Source: NewRemoteIndex(location, executor, nil)}, nil
	default:
		path := strings.TrimPrefix(location, "file://")
		file, err := NewFileIndex(path)
		if err != nil {
			return nil, err
		}
		return &Location{Source: file, Sink: file}, nil
	}
}

func scheme(location string) string {
	parsed, err := url.Parse(location)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Scheme)
}
