package ports

import (
	"context"

	"github.com/kirillkom/bafoeg-assistant/internal/core/domain"
)

// ChatService is the inbound contract of a single client chat session.
type ChatService interface {
	Start(ctx context.Context) domain.Strategy
	SendMessage(ctx context.Context, question string) (*domain.Reply, error)
	HasCredential() bool
	SaveCredential(ctx context.Context, credential string) error
	ResetCredential(ctx context.Context) error
	ClearHistory()
}

// BackendChatService is the inbound contract of the stateless backend service.
type BackendChatService interface {
	KnowledgeBaseLoaded() bool
	Answer(ctx context.Context, question, credential string) (*domain.BackendAnswer, error)
}
