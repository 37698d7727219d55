package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrUserNotFound        = fmt.Errorf("user %w", ErrNotFound)
	ErrRequestNotFound     = fmt.Errorf("blood request %w", ErrNotFound)
	ErrAppointmentNotFound = fmt.Errorf("appointment %w", ErrNotFound)

	ErrTokenMissing = errors.New("authentication required, no token provided")
	ErrTokenInvalid = errors.New("invalid or expired token")

	ErrUnknownEmail = errors.New("invalid email")
	ErrBadSecret    = errors.New("invalid password")

	ErrForbidden       = errors.New("forbidden")
	ErrVersionConflict = errors.New("record was modified concurrently")
)

// ValidationError carries every failed field rule of one input.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "Validation failed: " + strings.Join(e.Messages, ", ")
}

func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

// DuplicateError reports a collision on a unique field such as Email.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return e.Field + " already exists"
}

type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Entity, e.From, e.To)
}

// DependencyError wraps a failure of an outside system (mail, object storage).
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}
