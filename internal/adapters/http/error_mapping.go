package httpadapter

import (
	"context"
	"errors"
	"net/http"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// The client is usually gone; 503 keeps proxies from retrying as success.
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicErrorMessage hides internal details of 5xx failures.
func publicErrorMessage(status int, err error) string {
	if status == http.StatusBadRequest || status == http.StatusNotFound {
		return err.Error()
	}
	if status == http.StatusServiceUnavailable {
		return "service temporarily unavailable"
	}
	return "internal error"
}
