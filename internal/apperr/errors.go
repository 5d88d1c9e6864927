// Package apperr defines the error kinds shared by the sync engine and its adapters.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrNotConfigured = errors.New("remote not configured")
	ErrNetwork       = errors.New("network error")
	ErrAuth          = errors.New("authentication failed")
	ErrBusy          = errors.New("sync in progress")
	ErrInvalid       = errors.New("invalid input")
)

// Kind returns a short label for the first known error kind found in err's chain.
// It is used as a log attribute and metrics label.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotConfigured):
		return "configuration"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrInvalid):
		return "invalid"
	default:
		return "internal"
	}
}
