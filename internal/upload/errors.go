package upload

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest matches every ValidationError via errors.Is.
var ErrInvalidRequest = errors.New("invalid request")

// ValidationError reports a request rejected before any backend call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
