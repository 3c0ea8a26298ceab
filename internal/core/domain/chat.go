package domain

import "time"

// TokenUsage is forwarded as reported by the upstream API and never validated.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Completion struct {
	Answer string
	Usage  *TokenUsage
}

type BackendHealth struct {
	Status              string `json:"status"`
	KnowledgeBaseLoaded bool   `json:"knowledge_base_loaded"`
}

func (h BackendHealth) Healthy() bool {
	return h.Status == "ok" && h.KnowledgeBaseLoaded
}

type BackendAnswer struct {
	Answer  string      `json:"answer"`
	Sources []Source    `json:"sources"`
	Usage   *TokenUsage `json:"token_usage,omitempty"`

	// Fallback marks sources taken from the generic domain documents.
	Fallback bool `json:"-"`
}

// Strategy selects how a session obtains answers. The only transition is
// BackendPreferred -> DirectOnly.
type Strategy string

const (
	StrategyBackendPreferred Strategy = "backend-preferred"
	StrategyDirectOnly       Strategy = "direct-only"
)

// Reply is the success half of a chat exchange, handed to the presentation layer.
type Reply struct {
	Answer       string        `json:"answer"`
	Sources      []Source      `json:"sources"`
	ResponseTime time.Duration `json:"response_time"`
	TokenUsage   *TokenUsage   `json:"token_usage,omitempty"`
	Strategy     Strategy      `json:"strategy"`
}
