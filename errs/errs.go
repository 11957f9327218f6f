package errs

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel error kinds used across the application. Wrap concrete
// failures in one of these so callers can branch with errors.Is without
// depending on message text.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned when input fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when an operation clashes with existing
	// state, like a duplicate insert.
	ErrConflict = errors.New("conflict")

	// ErrTimeout is returned when an operation exceeds its deadline.
	ErrTimeout = errors.New("operation timed out")

	// ErrUnavailable is returned when a dependency is temporarily
	// unreachable or a circuit breaker is open.
	ErrUnavailable = errors.New("service unavailable")

	// ErrInternal is the fallback kind for unexpected failures.
	ErrInternal = errors.New("internal error")
)

// Error is a typed error carrying a sentinel kind, the operation that
// failed, an optional wrapped cause, and a correlation ID for tracing a
// failure across log lines.
type Error struct {
	// Kind is one of the sentinel errors above.
	Kind error

	// Op names the operation that failed, like "config.Load".
	Op string

	// ID correlates this error instance across logs and responses.
	ID uuid.UUID

	// Msg is an optional human-readable detail.
	Msg string

	// Err is the wrapped cause, if any.
	Err error
}

// E constructs an Error with the given kind, operation, and message.
func E(kind error, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, ID: uuid.New(), Msg: msg}
}

// Wrap constructs an Error wrapping an underlying cause.
func Wrap(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, ID: uuid.New(), Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Kind, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

// Unwrap exposes the wrapped cause for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the error's kind, so errors.Is(err, ErrNotFound) works
// without unwrapping to the sentinel by hand.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// KindOf walks the error chain and returns the kind of the outermost
// *Error, or ErrInternal when the chain carries no typed error. Returns
// nil for a nil error.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return ErrInternal
}

// IsRetryable reports whether the error's kind indicates a transient
// condition worth retrying.
func IsRetryable(err error) bool {
	kind := KindOf(err)
	return kind == ErrTimeout || kind == ErrUnavailable
}
