package pipeline

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is wrapped by every request validation failure
var ErrInvalidInput = errors.New("invalid input")

// ValidationError describes a rejected request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
