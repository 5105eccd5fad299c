// Package errs provides the unified error type used across all of pgbridge.
//
// Every subsystem (database pool, query executor, tool dispatcher, artifact
// sink, …) wraps its native errors into *errs.Error before returning them to
// callers. Callers use the Is* predicates to handle errors without importing
// driver-specific packages.
//
// Usage:
//
//	// In the pool, wrap native errors:
//	return errs.Wrap(errs.ErrKindConnection, "failed to create connection pool", pgErr)
//
//	// In the dispatcher, check error kind:
//	if errs.IsValidation(err) {
//	    return envelopeError(err)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing subsystem-specific codes.
// The pool, the executor, and the tool layer all map their native errors to
// one of these kinds, giving callers a single consistent API.
type ErrKind int

const (
	ErrKindUnknown         ErrKind = iota
	ErrKindConfiguration           // missing or invalid connection string / settings
	ErrKindPoolUnavailable         // pool could not be initialized
	ErrKindPoolExhausted           // timed out waiting for a pooled connection
	ErrKindConnection              // cannot reach or authenticate to the database
	ErrKindValidation              // malformed request, missing argument, bad type
	ErrKindExecution               // the SQL statement itself failed
	ErrKindNotFound                // unknown tool, no rows, missing object
	ErrKindTimeout                 // context deadline / cancellation
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindConfiguration:
		return "configuration"
	case ErrKindPoolUnavailable:
		return "pool_unavailable"
	case ErrKindPoolExhausted:
		return "pool_exhausted"
	case ErrKindConnection:
		return "connection"
	case ErrKindValidation:
		return "validation"
	case ErrKindExecution:
		return "execution"
	case ErrKindNotFound:
		return "not_found"
	case ErrKindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all pgbridge subsystems.
// Subsystems produce it; callers inspect it via the Is* predicates below.
// Message is safe to show to callers; Cause carries the native error for
// operator logs only.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf creates an *Error with a formatted message and no cause.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsConfiguration reports whether err was caused by missing or bad settings.
func IsConfiguration(err error) bool {
	return kindOf(err) == ErrKindConfiguration
}

// IsPoolUnavailable reports whether err means the pool never initialized.
func IsPoolUnavailable(err error) bool {
	return kindOf(err) == ErrKindPoolUnavailable
}

// IsPoolExhausted reports whether err means the pool was saturated.
func IsPoolExhausted(err error) bool {
	return kindOf(err) == ErrKindPoolExhausted
}

// IsConnection reports whether err is a connectivity or auth failure.
func IsConnection(err error) bool {
	return kindOf(err) == ErrKindConnection
}

// IsValidation reports whether err was caused by bad input from the caller.
func IsValidation(err error) bool {
	return kindOf(err) == ErrKindValidation
}

// IsExecution reports whether err is a SQL execution failure.
func IsExecution(err error) bool {
	return kindOf(err) == ErrKindExecution
}

// IsNotFound reports whether err represents a "not found" result
// (unknown tool, no rows, missing object, …).
func IsNotFound(err error) bool {
	return kindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return kindOf(err) == ErrKindTimeout
}

// kindOf extracts the ErrKind from any error in the chain.
func kindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
