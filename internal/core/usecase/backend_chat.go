package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/kirillkom/bafoeg-assistant/internal/core/domain"
	"github.com/kirillkom/bafoeg-assistant/internal/core/ports"
)

// BackendChatUseCase answers single questions without server-side session
// state. The index may be swapped between requests.
type BackendChatUseCase struct {
	gateway           ports.CompletionGateway
	weights           domain.ScoringWeights
	defaultCredential string
	finder            atomic.Pointer[SourceFinder]
}

func NewBackendChatUseCase(
	gateway ports.CompletionGateway,
	index *domain.KnowledgeIndex,
	weights domain.ScoringWeights,
	defaultCredential string,
) *BackendChatUseCase {
	if weights == (domain.ScoringWeights{}) {
		weights = domain.DefaultScoringWeights()
	}
	uc := &BackendChatUseCase{
		gateway:           gateway,
		weights:           weights,
		defaultCredential: strings.TrimSpace(defaultCredential),
	}
	uc.ReplaceIndex(index)
	return uc
}

func (uc *BackendChatUseCase) ReplaceIndex(index *domain.KnowledgeIndex) {
	uc.finder.Store(NewSourceFinder(index, uc.weights))
}

// Reload reads the index again from source. The current index stays in place
// when loading fails.
func (uc *BackendChatUseCase) Reload(ctx context.Context, source ports.KnowledgeIndexSource) (int, error) {
	docs, err := source.Load(ctx)
	if err != nil {
		return 0, domain.WrapError(domain.ErrIndexUnavailable, "reload knowledge index", err)
	}
	index := domain.NewKnowledgeIndex(docs)
	uc.ReplaceIndex(index)
	return index.Len(), nil
}

func (uc *BackendChatUseCase) KnowledgeBaseLoaded() bool {
	return uc.finder.Load().IndexSize() > 0
}

func (uc *BackendChatUseCase) Answer(ctx context.Context, question, credential string) (*domain.BackendAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "backend answer", fmt.Errorf("question is required"))
	}
	credential = strings.TrimSpace(credential)
	if credential == "" {
		credential = uc.defaultCredential
	}
	if credential == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "backend answer", fmt.Errorf("api_key is required"))
	}

	finder := uc.finder.Load()
	if finder.IndexSize() == 0 {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "backend answer", fmt.Errorf("knowledge base not loaded"))
	}

	selection := finder.Select(question)
	completion, err := uc.gateway.Complete(ctx, ports.CompletionRequest{
		Credential:  credential,
		Instruction: BackendInstruction(selection.Documents),
		Question:    question,
	})
	if err != nil {
		return nil, asChatError(err)
	}

	answer := &domain.BackendAnswer{
		Answer:   completion.Answer,
		Sources:  selection.Sources(),
		Usage:    normalizeUsage(completion.Usage),
		Fallback: selection.Fallback,
	}
	if IsRejection(answer.Answer) {
		answer.Sources = []domain.Source{}
		answer.Fallback = false
	}
	return answer, nil
}
