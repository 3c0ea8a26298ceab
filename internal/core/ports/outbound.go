package ports

import (
	"context"
	"io"

	"github.com/kirillkom/bafoeg-assistant/internal/core/domain"
)

// CompletionRequest is one call to the completion API. History excludes the
// system instruction, which is injected fresh on every request.
type CompletionRequest struct {
	Credential  string
	Instruction string
	History     []domain.Turn
	Question    string
}

// CompletionGateway calls the external completion API and classifies failures
// as *domain.ChatError.
type CompletionGateway interface {
	Complete(ctx context.Context, req CompletionRequest) (*domain.Completion, error)
}

// BackendClient talks to the optional retrieval backend.
type BackendClient interface {
	Health(ctx context.Context) (domain.BackendHealth, error)
	Chat(ctx context.Context, question, credential string) (*domain.BackendAnswer, error)
}

// KnowledgeIndexSource loads the static document index.
type KnowledgeIndexSource interface {
	Load(ctx context.Context) ([]domain.KnowledgeDocument, error)
}

// KnowledgeIndexSink replaces the stored document index.
type KnowledgeIndexSink interface {
	Replace(ctx context.Context, docs []domain.KnowledgeDocument) error
}

// CredentialStore persists the single bearer credential of the client.
type CredentialStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, credential string) error
	Delete(ctx context.Context) error
}

// IndexEvents announces and consumes knowledge index rebuilds.
type IndexEvents interface {
	PublishIndexRebuilt(ctx context.Context, location string) error
	SubscribeIndexRebuilt(ctx context.Context, handler func(context.Context, string) error) error
}

// ObjectStorage is keyed file storage for knowledge base files, the index
// and the client credential.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, ext string) ([]domain.StoredObject, error)
}

// KnowledgeIndexBuilder derives the index from the knowledge base files.
type KnowledgeIndexBuilder interface {
	Build(ctx context.Context) (*domain.IndexBuildReport, error)
}
