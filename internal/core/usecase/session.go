package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kirillkom/bafoeg-assistant/internal/core/domain"
	"github.com/kirillkom/bafoeg-assistant/internal/core/ports"
)

const (
	DefaultProbeTimeout     = 2 * time.Second
	DefaultCredentialPrefix = "sk-or-"
)

type SessionOptions struct {
	Instruction      string
	HistoryLimit     int
	ProbeTimeout     time.Duration
	CredentialPrefix string
	Weights          domain.ScoringWeights
	Now              func() time.Time
	Logger           *slog.Logger
}

// ChatSession owns the state of one client conversation: credential,
// bounded history and the backend strategy. The backend is probed once; the
// only strategy transition is a permanent demotion to direct calls.
type ChatSession struct {
	gateway     ports.CompletionGateway
	backend     ports.BackendClient
	credentials ports.CredentialStore
	finder      *SourceFinder
	opts        SessionOptions
	logger      *slog.Logger

	probeOnce  sync.Once
	processing atomic.Bool

	mu         sync.Mutex
	strategy   domain.Strategy
	credential string
	history    *domain.ConversationHistory
}

func NewChatSession(
	gateway ports.CompletionGateway,
	backend ports.BackendClient,
	credentials ports.CredentialStore,
	index *domain.KnowledgeIndex,
	opts SessionOptions,
) *ChatSession {
	if opts.Instruction == "" {
		opts.Instruction = DirectInstruction
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = domain.DefaultHistoryLimit
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.CredentialPrefix == "" {
		opts.CredentialPrefix = DefaultCredentialPrefix
	}
	if opts.Weights == (domain.ScoringWeights{}) {
		opts.Weights = domain.DefaultScoringWeights()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	strategy := domain.StrategyBackendPreferred
	if backend == nil {
		strategy = domain.StrategyDirectOnly
	}

	return &ChatSession{
		gateway:     gateway,
		backend:     backend,
		credentials: credentials,
		finder:      NewSourceFinder(index, opts.Weights),
		opts:        opts,
		logger:      logger,
		strategy:    strategy,
		history:     domain.NewConversationHistory(opts.HistoryLimit),
	}
}

// Start loads the stored credential and probes the backend. Only the first
// call probes; later calls return the current strategy.
func (s *ChatSession) Start(ctx context.Context) domain.Strategy {
	s.probeOnce.Do(func() {
		s.loadCredential(ctx)
		s.probe(ctx)
	})
	return s.Strategy()
}

func (s *ChatSession) Strategy() domain.Strategy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.strategy
}

func (s *ChatSession) History() []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Turns()
}

func (s *ChatSession) loadCredential(ctx context.Context) {
	if s.credentials == nil {
		return
	}
	credential, err := s.credentials.Load(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrCredentialMissing) {
			s.logger.Warn("credential_load_failed", "error", err.Error())
		}
		return
	}

	s.mu.Lock()
	if s.credential == "" {
		s.credential = strings.TrimSpace(credential)
	}
	s.mu.Unlock()
}

func (s *ChatSession) probe(ctx context.Context) {
	if s.backend == nil {
		s.logger.Info("backend_probe", "strategy", domain.StrategyDirectOnly, "reason", "backend not configured")
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.opts.ProbeTimeout)
	defer cancel()

	health, err := s.backend.Health(probeCtx)
	switch {
	case err != nil:
		s.setStrategy(domain.StrategyDirectOnly)
		s.logger.Info("backend_probe", "strategy", domain.StrategyDirectOnly, "error", err.Error())
	case !health.Healthy():
		s.setStrategy(domain.StrategyDirectOnly)
		s.logger.Info("backend_probe",
			"strategy", domain.StrategyDirectOnly,
			"status", health.Status,
			"knowledge_base_loaded", health.KnowledgeBaseLoaded,
		)
	default:
		s.logger.Info("backend_probe", "strategy", domain.StrategyBackendPreferred)
	}
}

func (s *ChatSession) setStrategy(strategy domain.Strategy) {
	s.mu.Lock()
	s.strategy = strategy
	s.mu.Unlock()
}

func (s *ChatSession) demote(err error) {
	s.mu.Lock()
	changed := s.strategy != domain.StrategyDirectOnly
	s.strategy = domain.StrategyDirectOnly
	s.mu.Unlock()
	if changed {
		s.logger.Warn("strategy_demoted",
			"from", domain.StrategyBackendPreferred,
			"to", domain.StrategyDirectOnly,
			"error", err.Error(),
		)
	}
}

func (s *ChatSession) HasCredential() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credential != ""
}

func (s *ChatSession) SaveCredential(ctx context.Context, credential string) error {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return domain.WrapError(domain.ErrInvalidInput, "save credential", fmt.Errorf("please enter an API key"))
	}
	if !strings.HasPrefix(credential, s.opts.CredentialPrefix) {
		return domain.WrapError(domain.ErrInvalidInput, "save credential",
			fmt.Errorf("the API key should start with %q", s.opts.CredentialPrefix))
	}
	if s.credentials != nil {
		if err := s.credentials.Save(ctx, credential); err != nil {
			return fmt.Errorf("persist credential: %w", err)
		}
	}

	s.mu.Lock()
	s.credential = credential
	s.mu.Unlock()
	return nil
}

// ResetCredential forgets the credential and the conversation.
func (s *ChatSession) ResetCredential(ctx context.Context) error {
	if s.credentials != nil {
		if err := s.credentials.Delete(ctx); err != nil {
			return fmt.Errorf("delete credential: %w", err)
		}
	}

	s.mu.Lock()
	s.credential = ""
	s.history.Clear()
	s.mu.Unlock()
	return nil
}

func (s *ChatSession) ClearHistory() {
	s.mu.Lock()
	s.history.Clear()
	s.mu.Unlock()
}

// SendMessage answers one question. Only one question may be outstanding.
func (s *ChatSession) SendMessage(ctx context.Context, question string) (*domain.Reply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "send message", fmt.Errorf("question is required"))
	}
	if !s.processing.CompareAndSwap(false, true) {
		return nil, domain.ErrBusy
	}
	defer s.processing.Store(false)

	s.Start(ctx)

	s.mu.Lock()
	credential := s.credential
	strategy := s.strategy
	history := s.history.Turns()
	s.mu.Unlock()
	if credential == "" {
		return nil, domain.ErrCredentialMissing
	}

	started := s.opts.Now()

	var reply *domain.Reply
	if strategy == domain.StrategyBackendPreferred {
		answer, err := s.askBackend(ctx, question, credential)
		if err != nil {
			s.demote(err)
		} else {
			reply = &domain.Reply{
				Answer:     answer.Answer,
				Sources:    answer.Sources,
				TokenUsage: normalizeUsage(answer.Usage),
				Strategy:   domain.StrategyBackendPreferred,
			}
		}
	}

	if reply == nil {
		completion, err := s.gateway.Complete(ctx, ports.CompletionRequest{
			Credential:  credential,
			Instruction: s.opts.Instruction,
			History:     history,
			Question:    question,
		})
		if err != nil {
			return nil, asChatError(err)
		}
		reply = &domain.Reply{
			Answer:     completion.Answer,
			Sources:    s.finder.Select(question).Sources(),
			TokenUsage: normalizeUsage(completion.Usage),
			Strategy:   domain.StrategyDirectOnly,
		}
	}

	if reply.Sources == nil || IsRejection(reply.Answer) {
		reply.Sources = []domain.Source{}
	}
	reply.ResponseTime = s.opts.Now().Sub(started)

	s.mu.Lock()
	s.history.Append(
		domain.Turn{Role: domain.RoleUser, Content: question},
		domain.Turn{Role: domain.RoleAssistant, Content: reply.Answer},
	)
	s.mu.Unlock()

	return reply, nil
}

func (s *ChatSession) askBackend(ctx context.Context, question, credential string) (*domain.BackendAnswer, error) {
	answer, err := s.backend.Chat(ctx, question, credential)
	if err != nil {
		return nil, domain.WrapError(domain.ErrBackendUnreachable, "backend chat", err)
	}
	if answer == nil || strings.TrimSpace(answer.Answer) == "" {
		return nil, domain.WrapError(domain.ErrBackendUnreachable, "backend chat", fmt.Errorf("empty answer"))
	}
	return answer, nil
}

func asChatError(err error) error {
	if _, ok := domain.FailureKindOf(err); ok {
		return err
	}
	return domain.NewChatError(domain.FailureUpstream, "", err)
}

func normalizeUsage(usage *domain.TokenUsage) *domain.TokenUsage {
	if usage == nil || *usage == (domain.TokenUsage{}) {
		return nil
	}
	out := *usage
	return &out
}
