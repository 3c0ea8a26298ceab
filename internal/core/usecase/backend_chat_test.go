package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/bafoeg-assistant/internal/core/domain"
)

type indexSourceFake struct {
	docs []domain.KnowledgeDocument
	err  error
}

func (f *indexSourceFake) Load(context.Context) ([]domain.KnowledgeDocument, error) {
	return f.docs, f.err
}

func TestBackendChatAnswerUsesContextAndSources(t *testing.T) {
	gateway := &gatewayFake{answer: "Die Altersgrenze liegt bei 45 Jahren.", usage: &domain.TokenUsage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7}}
	uc := NewBackendChatUseCase(gateway, testIndex(), domain.ScoringWeights{}, "")

	answer, err := uc.Answer(context.Background(), "What is the maximum BAföG funding age limit?", "sk-or-client")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if len(answer.Sources) == 0 || answer.Sources[0].Name != "Altersgrenzen" {
		t.Fatalf("unexpected sources: %+v", answer.Sources)
	}
	if answer.Usage == nil || answer.Usage.TotalTokens != 7 {
		t.Fatalf("unexpected usage: %+v", answer.Usage)
	}

	req := gateway.requests[0]
	if req.Credential != "sk-or-client" || len(req.History) != 0 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if !strings.Contains(req.Instruction, "[1] Altersgrenzen") {
		t.Fatalf("expected context in instruction: %s", req.Instruction)
	}
}

func TestBackendChatAnswerFallbackAndDefaultCredential(t *testing.T) {
	gateway := &gatewayFake{}
	uc := NewBackendChatUseCase(gateway, testIndex(), domain.DefaultScoringWeights(), "sk-or-server")

	answer, err := uc.Answer(context.Background(), "hello world", "")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !answer.Fallback || len(answer.Sources) != 1 {
		t.Fatalf("expected fallback source, got %+v", answer)
	}
	if gateway.requests[0].Credential != "sk-or-server" {
		t.Fatalf("expected default credential")
	}
}

func TestBackendChatAnswerValidation(t *testing.T) {
	uc := NewBackendChatUseCase(&gatewayFake{}, testIndex(), domain.DefaultScoringWeights(), "")
	if _, err := uc.Answer(context.Background(), " ", "sk-or-x"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for question, got %v", err)
	}
	if _, err := uc.Answer(context.Background(), "Frage", ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for key, got %v", err)
	}

	empty := NewBackendChatUseCase(&gatewayFake{}, nil, domain.DefaultScoringWeights(), "")
	if empty.KnowledgeBaseLoaded() {
		t.Fatalf("expected unloaded knowledge base")
	}
	if _, err := empty.Answer(context.Background(), "Frage", "sk-or-x"); !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestBackendChatRejectionClearsSources(t *testing.T) {
	gateway := &gatewayFake{answer: "Ich kann nur bei BAföG-bezogenen Fragen helfen."}
	uc := NewBackendChatUseCase(gateway, testIndex(), domain.DefaultScoringWeights(), "")

	answer, err := uc.Answer(context.Background(), "Wetter im Ausland?", "sk-or-x")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if len(answer.Sources) != 0 || answer.Fallback {
		t.Fatalf("expected no sources, got %+v", answer)
	}
}

func TestBackendChatReload(t *testing.T) {
	uc := NewBackendChatUseCase(&gatewayFake{}, nil, domain.DefaultScoringWeights(), "")

	n, err := uc.Reload(context.Background(), &indexSourceFake{docs: testIndex().Documents()})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if n != 5 || !uc.KnowledgeBaseLoaded() {
		t.Fatalf("expected loaded index, got %d", n)
	}

	if _, err := uc.Reload(context.Background(), &indexSourceFake{err: errors.New("missing")}); !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
	if !uc.KnowledgeBaseLoaded() {
		t.Fatalf("failed reload must keep the current index")
	}
}

func TestLoadKnowledgeIndexDegradesToEmpty(t *testing.T) {
	logger := quietOptions().Logger
	if index := LoadKnowledgeIndex(context.Background(), &indexSourceFake{err: errors.New("no such file")}, logger); index.Len() != 0 {
		t.Fatalf("expected empty index")
	}
	if index := LoadKnowledgeIndex(context.Background(), nil, logger); index.Len() != 0 {
		t.Fatalf("expected empty index")
	}
	index := LoadKnowledgeIndex(context.Background(), &indexSourceFake{docs: []domain.KnowledgeDocument{{Name: "A", Keywords: []string{" BAföG "}}}}, logger)
	if index.Len() != 1 || index.Documents()[0].Keywords[0] != "bafög" {
		t.Fatalf("unexpected index: %+v", index.Documents())
	}
}
