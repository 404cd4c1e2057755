// Package apperrors defines the error taxonomy shared by the service layer
// and translated to HTTP status codes by pkg/httputil.
package apperrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrValidation is returned when a request field is malformed or out of range
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when a write would violate a uniqueness rule
	ErrConflict = errors.New("conflict")

	// ErrNotFound is returned when a referenced resource does not exist
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the policy engine denies an authenticated caller
	ErrForbidden = errors.New("permission denied")

	// ErrUnauthenticated is returned when a guarded action is attempted anonymously
	ErrUnauthenticated = errors.New("authentication required")
)

// ValidationError carries per-field messages. It wraps ErrValidation.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError creates a validation error for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string][]string{field: {message}}}
}

// Add appends a message for a field
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// HasErrors reports whether any field message was recorded
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

// OrNil returns the error if it has field messages, nil otherwise
func (e *ValidationError) OrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], "; ")))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, ", "))
}

// Unwrap lets errors.Is match ErrValidation
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// IsValidation checks if the error is or wraps ErrValidation
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConflict checks if the error is or wraps ErrConflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsNotFound checks if the error is or wraps ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsForbidden checks if the error is or wraps ErrForbidden
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsUnauthenticated checks if the error is or wraps ErrUnauthenticated
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

// NotFound creates a not found error naming the missing resource
func NotFound(resource string, key interface{}) error {
	return fmt.Errorf("%w: %s %v", ErrNotFound, resource, key)
}

// Conflict creates a conflict error with a message
func Conflict(message string) error {
	return fmt.Errorf("%w: %s", ErrConflict, message)
}

// Forbidden creates a permission error with a message
func Forbidden(message string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, message)
}

// FieldErrors extracts per-field messages from a validation error, if any
func FieldErrors(err error) map[string][]string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}
