package control

import (
	"errors"
	"fmt"
)

// Sentinels the HTTP layer maps to status codes. Queue and scheduler errors
// cross the plane untranslated; the HTTP layer checks those families too.
var (
	// ErrNotFound marks a missing entity (404).
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput marks a boundary payload violation (400).
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict marks an operation that is valid in general but not in the
	// entity's current state (409).
	ErrConflict = errors.New("illegal state transition")
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidInput}, args...)...)
}
