// Package apperr holds the error taxonomy shared by services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound marks a missing user, lesson or reading session.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput marks malformed identifiers or out-of-range values.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized marks admin-only operations called by a non-admin identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnavailable marks an unreachable optional collaborator (cache, notifier).
	ErrUnavailable = errors.New("collaborator unavailable")
)

// Invalid wraps ErrInvalidInput with a formatted reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// NotFound wraps ErrNotFound with a formatted subject.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Status maps an error to an HTTP status and a short machine-readable code.
func Status(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
