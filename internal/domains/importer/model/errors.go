package model

import (
	"errors"
	"fmt"
)

var (
	ErrImportNotFound    = errors.New("import not found")
	ErrUnknownImportType = errors.New("unknown import type")
	ErrImportNotTerminal = errors.New("import is not in a terminal state")
	ErrFileTooLarge      = errors.New("file exceeds the row limit")

	// ErrInvalidTransition is a caller logic error, distinct from row-level
	// business errors which are counted rather than raised.
	ErrInvalidTransition = errors.New("invalid import status transition")
)

// TransitionError wraps ErrInvalidTransition with the attempted move.
func TransitionError(from, to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// RowValidationError marks a per-row business failure. The processor records
// it as a RowError and moves on; it never aborts a batch.
type RowValidationError struct {
	Kind    EntityKind
	Message string
}

func (e *RowValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewRowValidationError builds a row-level failure for the given kind.
func NewRowValidationError(kind EntityKind, format string, args ...interface{}) *RowValidationError {
	return &RowValidationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsRowValidationError unwraps err into a RowValidationError if it is one.
func AsRowValidationError(err error) (*RowValidationError, bool) {
	var rve *RowValidationError
	if errors.As(err, &rve) {
		return rve, true
	}
	return nil, false
}
