package openrouter

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/bafoeg-assistant/internal/core/domain"
	"github.com/kirillkom/bafoeg-assistant/internal/core/ports"
	"github.com/kirillkom/bafoeg-assistant/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL     = "https://openrouter.ai/api/v1"
	DefaultModel       = "openai/gpt-oss-120b:free"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000
	DefaultTitle       = "BAföG Chatbot"

	completionOperation = "openrouter_chat_completion"
)

type Config struct {
	BaseURL string
	Model   string
	// Temperature nil or negative selects DefaultTemperature; zero is greedy.
	Temperature *float32
	MaxTokens   int
	Referer     string
	Title       string
}

// Gateway calls the OpenRouter chat completions endpoint with the caller's
// credential. Failures are never retried; a breaker fails fast while the
// upstream keeps returning server errors.
type Gateway struct {
	cfg        Config
	httpClient *http.Client
	executor   *resilience.Executor
}

var _ ports.CompletionGateway = (*Gateway)(nil)

func New(cfg Config, executor *resilience.Executor) *Gateway {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	temperature := float32(DefaultTemperature)
	if cfg.Temperature != nil && *cfg.Temperature >= 0 {
		temperature = *cfg.Temperature
	}
	cfg.Temperature = &temperature
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.CompletionConfig())
	}

	return &Gateway{
		cfg: cfg,
		// No overall timeout: the caller's context bounds the call.
		httpClient: &http.Client{Transport: newHeaderTransport(nil, cfg.Referer, cfg.Title)},
		executor:   executor,
	}
}

func (g *Gateway) Complete(ctx context.Context, req ports.CompletionRequest) (*domain.Completion, error) {
	credential := strings.TrimSpace(req.Credential)
	if credential == "" {
		return nil, domain.NewChatError(domain.FailureInvalidCredential, "", domain.ErrCredentialMissing)
	}

	clientCfg := openai.DefaultConfig(credential)
	clientCfg.BaseURL = g.cfg.BaseURL
	clientCfg.HTTPClient = g.httpClient
	client := openai.NewClientWithConfig(clientCfg)

	request := openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		Messages:    buildMessages(req),
		Temperature: wireTemperature(*g.cfg.Temperature),
		MaxTokens:   g.cfg.MaxTokens,
	}

	resp, err := resilience.Call(ctx, g.executor, completionOperation, func(ctx context.Context) (openai.ChatCompletionResponse, error) {
		return client.CreateChatCompletion(ctx, request)
	}, resilience.NoRetry(classifyCompletionError))
	if err != nil {
		return nil, mapCompletionError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, domain.NewChatError(domain.FailureEmptyResponse, "", fmt.Errorf("completion returned no choices"))
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return nil, domain.NewChatError(domain.FailureEmptyResponse, "", fmt.Errorf("completion returned empty content"))
	}

	return &domain.Completion{Answer: answer, Usage: usageOf(resp.Usage)}, nil
}

func buildMessages(req ports.CompletionRequest) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.Instruction != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.Instruction,
		})
	}
	for _, turn := range req.History {
		role := openai.ChatMessageRoleUser
		switch turn.Role {
		case domain.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case domain.RoleSystem:
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Question,
	})
}

// wireTemperature keeps zero on the wire; the request field is omitempty.
func wireTemperature(temperature float32) float32 {
	if temperature == 0 {
		return math.SmallestNonzeroFloat32
	}
	return temperature
}

func usageOf(usage openai.Usage) *domain.TokenUsage {
	if usage.PromptTokens == 0 && usage.CompletionTokens == 0 && usage.TotalTokens == 0 {
		return nil
	}
	return &domain.TokenUsage{
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
	}
}
