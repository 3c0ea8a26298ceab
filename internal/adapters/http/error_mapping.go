package httpadapter

import (
	"errors"
	"net/http"

	"github.com/kirillkom/bafoeg-assistant/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	if kind, ok := domain.FailureKindOf(err); ok {
		switch kind {
		case domain.FailureInvalidCredential:
			return http.StatusUnauthorized
		case domain.FailureRateLimited:
			return http.StatusTooManyRequests
		}
		if errors.Is(err, domain.ErrTemporary) {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	}
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorOutcome names the failure for the response body and metrics.
func errorOutcome(err error) string {
	if kind, ok := domain.FailureKindOf(err); ok {
		return string(kind)
	}
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid-input"
	case domain.IsKind(err, domain.ErrIndexUnavailable):
		return "index-unavailable"
	case errors.Is(err, domain.ErrTemporary):
		return "temporary"
	default:
		return "internal-error"
	}
}

// errorMessage keeps user-facing completion messages and hides internals.
func errorMessage(err error) string {
	var chatErr *domain.ChatError
	if errors.As(err, &chatErr) {
		return chatErr.Error()
	}
	switch {
	case domain.IsKind(err, domain.ErrIndexUnavailable):
		return "Knowledge base not loaded"
	case domain.IsKind(err, domain.ErrInvalidInput):
		return err.Error()
	default:
		return "Internal server error"
	}
}
