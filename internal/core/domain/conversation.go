package domain

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// DefaultHistoryLimit keeps the last five question/answer exchanges.
const DefaultHistoryLimit = 10

// ConversationHistory is a bounded FIFO window of user and assistant turns.
// System turns are never stored.
type ConversationHistory struct {
	limit int
	turns []Turn
}

func NewConversationHistory(limit int) *ConversationHistory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &ConversationHistory{limit: limit}
}

func (h *ConversationHistory) Append(turns ...Turn) {
	for _, turn := range turns {
		if turn.Role == RoleSystem {
			continue
		}
		h.turns = append(h.turns, turn)
	}
	if len(h.turns) > h.limit {
		kept := make([]Turn, h.limit)
		copy(kept, h.turns[len(h.turns)-h.limit:])
		h.turns = kept
	}
}

func (h *ConversationHistory) Turns() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *ConversationHistory) Len() int {
	return len(h.turns)
}

func (h *ConversationHistory) Limit() int {
	return h.limit
}

func (h *ConversationHistory) Clear() {
	h.turns = nil
}
