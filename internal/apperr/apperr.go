// Package apperr defines the error taxonomy shared across the service.
//
// Handlers and the turn orchestrator branch on these sentinels with
// errors.Is; everything else wraps them with fmt.Errorf("...: %w", ...).
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates malformed input (message text or tool arguments).
	ErrValidation = errors.New("validation error")

	// ErrNotFound covers both a missing resource and a resource owned by
	// another user. The two cases are deliberately indistinguishable so
	// existence never leaks across users.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates admission was denied before the turn started.
	ErrRateLimited = errors.New("rate limited")

	// ErrReasoningUnavailable indicates the reasoning provider timed out or
	// failed; the turn degrades instead of propagating this to the caller.
	ErrReasoningUnavailable = errors.New("reasoning provider unavailable")

	// ErrStore indicates an underlying persistence failure.
	ErrStore = errors.New("store error")
)

// Validationf wraps ErrValidation with a caller-safe description.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Storef wraps ErrStore with internal detail. The detail is for logs only
// and must never be surfaced to the caller verbatim.
func Storef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStore, fmt.Sprintf(format, args...))
}
