package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/bafoeg-assistant/internal/core/domain"
)

type chatServiceFake struct {
	strategy   domain.Strategy
	credential string
	replies    []*domain.Reply
	errs       []error

	questions []string
	cleared   int
	resets    int
}

func (f *chatServiceFake) Start(context.Context) domain.Strategy { return f.strategy }

func (f *chatServiceFake) SendMessage(_ context.Context, question string) (*domain.Reply, error) {
	f.questions = append(f.questions, question)
	if f.credential == "" {
		return nil, domain.ErrCredentialMissing
	}
	i := len(f.questions) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return &domain.Reply{Answer: "ok", Sources: []domain.Source{}}, nil
}

func (f *chatServiceFake) HasCredential() bool { return f.credential != "" }

func (f *chatServiceFake) SaveCredential(_ context.Context, credential string) error {
	if !strings.HasPrefix(credential, "sk-or-") {
		return domain.WrapError(domain.ErrInvalidInput, "save credential", fmt.Errorf("the API key should start with %q", "sk-or-"))
	}
	f.credential = credential
	return nil
}

func (f *chatServiceFake) ResetCredential(context.Context) error {
	f.resets++
	f.credential = ""
	return nil
}

func (f *chatServiceFake) ClearHistory() { f.cleared++ }

func run(t *testing.T, chat *chatServiceFake, input string) string {
	t.Helper()
	var out bytes.Buffer
	if err := NewREPL(chat, strings.NewReader(input), &out).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return out.String()
}

func TestREPLPromptsForCredentialFirst(t *testing.T) {
	chat := &chatServiceFake{strategy: domain.StrategyDirectOnly}
	out := run(t, chat, "invalid\nsk-or-good\nWas ist BAföG?\n/exit\n")

	if chat.credential != "sk-or-good" {
		t.Fatalf("expected stored credential, got %q", chat.credential)
	}
	if !strings.Contains(out, `⚠️ Error: the API key should start with "sk-or-"`) {
		t.Fatalf("expected prefix error in output:\n%s", out)
	}
	if len(chat.questions) != 1 || chat.questions[0] != "Was ist BAföG?" {
		t.Fatalf("unexpected questions: %v", chat.questions)
	}
}

func TestREPLRendersReplyAndErrors(t *testing.T) {
	chat := &chatServiceFake{
		strategy:   domain.StrategyBackendPreferred,
		credential: "sk-or-x",
		replies: []*domain.Reply{{
			Answer:       "Die Altersgrenze liegt bei 45 Jahren.",
			Sources:      []domain.Source{{Name: "Altersgrenzen", URL: "https://example.org/alter"}},
			ResponseTime: 1234 * time.Millisecond,
			TokenUsage:   &domain.TokenUsage{TotalTokens: 420},
		}},
		errs: []error{nil, domain.NewChatError(domain.FailureRateLimited, "", nil)},
	}
	out := run(t, chat, "Altersgrenze?\nnoch eine Frage\n")

	for _, want := range []string{
		"Connected to the knowledge base service.",
		"Die Altersgrenze liegt bei 45 Jahren.\n\n📚 Sources:\n  • Altersgrenzen (https://example.org/alter)\n⏱️ 1.23s • 🔢 420 tokens",
		"⚠️ Error: Too many requests. Please wait a moment and try again.",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestREPLCommands(t *testing.T) {
	chat := &chatServiceFake{strategy: domain.StrategyDirectOnly, credential: "sk-or-old"}
	out := run(t, chat, "/help\n/clear\n/key\nn\n/key\ny\nsk-or-new\n/exit\nignored\n")

	if !strings.Contains(out, "/clear  clear the conversation") {
		t.Fatalf("expected help text:\n%s", out)
	}
	if chat.cleared != 1 || chat.resets != 1 {
		t.Fatalf("unexpected calls: cleared=%d resets=%d", chat.cleared, chat.resets)
	}
	if chat.credential != "sk-or-new" {
		t.Fatalf("expected new credential, got %q", chat.credential)
	}
	if len(chat.questions) != 0 {
		t.Fatalf("commands must not be sent as questions: %v", chat.questions)
	}
}

func TestFormatReplyWithoutSourcesOrMetadata(t *testing.T) {
	got := FormatReply(&domain.Reply{Answer: "I can only help with BAföG questions.", Sources: []domain.Source{}})
	if got != "I can only help with BAföG questions." {
		t.Fatalf("unexpected rendering: %q", got)
	}
}

func TestFormatError(t *testing.T) {
	if got := FormatError(domain.ErrBusy); !strings.HasPrefix(got, "⚠️ Error: ") {
		t.Fatalf("unexpected busy rendering: %q", got)
	}
	if got := FormatError(errors.New("boom")); got != "⚠️ Error: boom" {
		t.Fatalf("unexpected rendering: %q", got)
	}
}
