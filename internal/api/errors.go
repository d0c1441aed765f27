package api

import (
	"errors"
	"fmt"
)

// Error is a failure reported at the operation boundary.
//
// Two kinds exist:
//   - Precondition: the call was rejected before anything ran
//   - Delegated: a handler reported a soft failure that is surfaced here
//
// Collaborator failures (storage, clock, change log) are returned as they
// are and never wrapped in an Error.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes operation errors.
type ErrorCode string

const (
	// ErrCodePrecondition indicates a failed check before the operation ran.
	ErrCodePrecondition ErrorCode = "PRECONDITION"

	// ErrCodeDelegated indicates a handler returned a soft failure.
	ErrCodeDelegated ErrorCode = "DELEGATED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func preconditionf(format string, args ...any) *Error {
	return &Error{Code: ErrCodePrecondition, Message: fmt.Sprintf(format, args...)}
}

func delegated(message string, err error) *Error {
	return &Error{Code: ErrCodeDelegated, Message: message, Err: err}
}

// IsPreconditionError returns true if err is a precondition failure.
// Uses errors.As to handle wrapped errors.
func IsPreconditionError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrCodePrecondition
	}
	return false
}

// IsDelegatedError returns true if err is a surfaced handler failure.
// Uses errors.As to handle wrapped errors.
func IsDelegatedError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrCodeDelegated
	}
	return false
}
