package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", NotFound("lesson %q", "a.md"), http.StatusNotFound, "not_found"},
		{"invalid", Invalid("word count %d", -1), http.StatusBadRequest, "invalid_input"},
		{"wrapped unauthorized", fmt.Errorf("grant: %w", ErrUnauthorized), http.StatusForbidden, "forbidden"},
		{"unavailable", ErrUnavailable, http.StatusServiceUnavailable, "unavailable"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := Status(tt.err)
			if status != tt.status || code != tt.code {
				t.Fatalf("got=(%d,%s) want=(%d,%s)", status, code, tt.status, tt.code)
			}
		})
	}
}

func TestInvalidKeepsReason(t *testing.T) {
	err := Invalid("scroll %d out of range", 120)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err.Error() != "invalid input: scroll 120 out of range" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
