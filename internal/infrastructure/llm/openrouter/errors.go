package openrouter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/bafoeg-assistant/internal/core/domain"
	"github.com/kirillkom/bafoeg-assistant/internal/infrastructure/resilience"
)

const (
	modelUnavailableMarker = "No endpoints found"
	breakerOpenMessage     = "The completion service is temporarily unavailable. Please try again later."
)

// upstreamStatus extracts the HTTP status and upstream message from a
// go-openai error. ok is false for failures without a response.
func upstreamStatus(err error) (status int, message string, ok bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, strings.TrimSpace(apiErr.Message), true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode, strings.TrimSpace(string(reqErr.Body)), true
	}
	return 0, "", false
}

// classifyCompletionError feeds the breaker: server errors and network
// failures count, client errors and cancellation do not.
func classifyCompletionError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{}
	}
	if status, _, ok := upstreamStatus(err); ok {
		return resilience.ErrorClassification{RecordFailure: status >= http.StatusInternalServerError}
	}
	return resilience.ErrorClassification{RecordFailure: true}
}

func mapCompletionError(err error) error {
	if resilience.IsCircuitOpen(err) {
		return domain.NewChatError(domain.FailureUpstream, breakerOpenMessage, domain.WrapError(domain.ErrTemporary, "chat completion", err))
	}

	status, message, ok := upstreamStatus(err)
	if !ok {
		return domain.NewChatError(domain.FailureUpstream, fmt.Sprintf("Could not reach the completion service: %v", rootCause(err)), err)
	}

	switch {
	case status == http.StatusUnauthorized:
		return domain.NewChatError(domain.FailureInvalidCredential, "", err)
	case status == http.StatusTooManyRequests:
		return domain.NewChatError(domain.FailureRateLimited, "", err)
	case status == http.StatusBadRequest && strings.Contains(message, modelUnavailableMarker):
		return domain.NewChatError(domain.FailureModelUnavailable, "", err)
	case message != "":
		return domain.NewChatError(domain.FailureUpstream, message, err)
	default:
		return domain.NewChatError(domain.FailureUpstream, fmt.Sprintf("API error: %d", status), err)
	}
}

func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
