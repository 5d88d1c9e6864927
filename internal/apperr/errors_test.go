package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKind(t *testing.T) {
	cases := map[string]error{
		"ok":            nil,
		"configuration": fmt.Errorf("engine: push: %w", ErrNotConfigured),
		"conflict":      fmt.Errorf("remote: put a.md: %w: %w", ErrConflict, errors.New("409")),
		"auth":          fmt.Errorf("remote: list: %w", ErrAuth),
		"network":       ErrNetwork,
		"not_found":     ErrNotFound,
		"busy":          ErrBusy,
		"internal":      errors.New("boom"),
	}
	for want, err := range cases {
		if got := Kind(err); got != want {
			t.Errorf("Kind(%v) = %q, want %q", err, got, want)
		}
	}
}
