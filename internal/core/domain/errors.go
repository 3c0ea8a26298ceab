package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrCredentialMissing  = errors.New("credential missing")
	ErrBusy               = errors.New("a question is already being processed")
	ErrTemporary          = errors.New("temporary failure")
	ErrBackendUnreachable = errors.New("backend unreachable")
	ErrIndexUnavailable   = errors.New("knowledge index unavailable")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
