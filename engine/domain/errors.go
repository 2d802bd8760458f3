package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for dataset validation failures.
var (
	ErrEmptyUniverse  = errors.New("empty universe")
	ErrEmptyModel     = errors.New("empty vehicle model")
	ErrDuplicateModel = errors.New("duplicate vehicle model")
	ErrDuplicateYear  = errors.New("duplicate year")
	ErrYearOutOfRange = errors.New("year out of range")
	ErrUnknownModel   = errors.New("unknown vehicle model")
	ErrUnknownYear    = errors.New("unknown year")
)

// ValidationError wraps a sentinel with context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
