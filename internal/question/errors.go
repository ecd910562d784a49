package question

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for an unknown Question or Version.
	ErrNotFound = errors.New("not found")

	// ErrConcurrencyConflict means another writer took the version number
	// being appended. Stores retry it internally.
	ErrConcurrencyConflict = errors.New("concurrent append conflict")
)

// ValidationError rejects a request before any work is done.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError wraps ErrNotFound with the missing Question's identity.
func NotFoundError(id string) error {
	return fmt.Errorf("question %q: %w", id, ErrNotFound)
}
