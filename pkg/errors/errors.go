package errors

import (
	"errors"
	"fmt"
)

// Explorer error taxonomy. Callers match these with errors.Is to decide
// how to render a failure; the data client decides retry eligibility here.

var (
	// ErrUnknownChain indicates a chain id absent from the registry
	ErrUnknownChain = errors.New("unknown chain")

	// ErrInvalidRequest indicates a malformed address or parameter rejected upstream
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUpstreamUnavailable indicates transport failure or repeated 5xx after retries
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrParse indicates a response shape that did not match the expected contract
	ErrParse = errors.New("unexpected response shape")

	// ErrRateLimited indicates the upstream itself throttled the request
	ErrRateLimited = errors.New("upstream rate limit exceeded")
)

// General process errors

var (
	// ErrInternal indicates an internal failure
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")
)

// ValidationError represents a validation error with field-specific details.
// It wraps ErrInvalidRequest so errors.Is classification still applies.
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// Unwrap makes the error match ErrInvalidRequest
func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
