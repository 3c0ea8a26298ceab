package domain

import (
	"errors"
	"strings"
)

// FailureKind classifies completion failures that are shown to the user.
type FailureKind string

const (
	FailureInvalidCredential FailureKind = "invalid-credential"
	FailureRateLimited       FailureKind = "rate-limited"
	FailureModelUnavailable  FailureKind = "model-unavailable"
	FailureUpstream          FailureKind = "upstream-error"
	FailureEmptyResponse     FailureKind = "empty-response"
)

var defaultFailureMessages = map[FailureKind]string{
	FailureInvalidCredential: "Invalid API key. Please check your OpenRouter API key.",
	FailureRateLimited:       "Too many requests. Please wait a moment and try again.",
	FailureModelUnavailable:  "The selected model is not available. Please try another model or check available models at openrouter.ai/models",
	FailureUpstream:          "The completion service returned an error.",
	FailureEmptyResponse:     "No response received from server.",
}

// ChatError is the failure half of a chat exchange. Message is user-facing.
type ChatError struct {
	Kind    FailureKind
	Message string
	Err     error
}

func NewChatError(kind FailureKind, message string, err error) *ChatError {
	return &ChatError{Kind: kind, Message: strings.TrimSpace(message), Err: err}
}

func (e *ChatError) Error() string {
	if e == nil {
		return "chat error"
	}
	if e.Message != "" {
		return e.Message
	}
	if msg, ok := defaultFailureMessages[e.Kind]; ok {
		return msg
	}
	return string(e.Kind)
}

func (e *ChatError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// FailureKindOf reports the failure kind carried by err, if any.
func FailureKindOf(err error) (FailureKind, bool) {
	var chatErr *ChatError
	if errors.As(err, &chatErr) && chatErr != nil {
		return chatErr.Kind, true
	}
	return "", false
}
