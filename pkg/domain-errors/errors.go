// Package domainerrors defines the coded error type shared by every vault
// operation. Services return these; the HTTP layer maps codes to statuses.
//
// Usage:
//
//	return dErrors.New(dErrors.CodeAlreadyVoted, "member already voted on this proposal")
//	return dErrors.Wrap(err, dErrors.CodeInternal, "append history record")
//
// Checking:
//
//	if dErrors.HasCode(err, dErrors.CodeNotFound) { ... }
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies the failure class of a vault operation.
type Code string

const (
	// Domain codes (one per failure class in the engine's taxonomy).
	CodeUnauthorized      Code = "unauthorized"
	CodeInvalidRole       Code = "invalid_role"
	CodeAlreadyExists     Code = "already_exists"
	CodeNotFound          Code = "not_found"
	CodeAlreadyVoted      Code = "already_voted"
	CodeExpired           Code = "expired"
	CodeInsufficientVotes Code = "insufficient_votes"
	CodeInvalidAmount     Code = "invalid_amount"
	CodeExecutionFailed   Code = "execution_failed"
	CodeLimitExceeded     Code = "limit_exceeded"

	// Transport and infrastructure codes.
	CodeInvalidInput Code = "invalid_input"
	CodeBadRequest   Code = "bad_request"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal_error"
)

// Error is a coded domain error. Message is safe to surface to callers for
// every code except CodeInternal.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is makes errors.Is match on code equality so sentinel-style comparisons work.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// New constructs a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is / errors.As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// CodeOf extracts the code from err, defaulting to CodeInternal for uncoded
// errors so unexpected failures never leak details.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Is reports whether err matches target via the standard errors.Is chain.
func Is(err, target error) bool { return errors.Is(err, target) }
