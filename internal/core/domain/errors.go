package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrTemporary            = errors.New("temporary failure")
	ErrNotFound             = errors.New("not found")
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	ErrStrategyTimeout      = errors.New("strategy timeout")
	ErrBackendTimeout       = errors.New("backend timeout")
	ErrBackendUnavailable   = errors.New("backend unavailable")
	ErrAllBackendsExhausted = errors.New("all backends exhausted")
	ErrConversationOverflow = errors.New("conversation overflow")
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
