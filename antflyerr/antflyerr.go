// Package antflyerr defines the (kind, message) error taxonomy the core
// engine surfaces from every operation (§7 of the spec): schema-violation,
// not-found, conflict, invalid-filter, deadline-exceeded, resource-exhausted,
// and backend-failure. All core packages return *Error (or wrap one) rather
// than ad-hoc errors so callers can switch on Kind.
package antflyerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind enumerates the error taxonomy from spec §7.
type Kind string

const (
	SchemaViolation   Kind = "schema-violation"
	NotFound          Kind = "not-found"
	Conflict          Kind = "conflict"
	InvalidFilter     Kind = "invalid-filter"
	DeadlineExceeded  Kind = "deadline-exceeded"
	ResourceExhausted Kind = "resource-exhausted"
	BackendFailure    Kind = "backend-failure"
)

// Error pairs a Kind with a message and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil && e.cause.Error() != e.Message {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an *Error, capturing a stack trace via pkg/errors so backend
// failures remain diagnosable across the KV/embedder RPC boundary.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: errors.New(fmt.Sprintf(format, args...))}
}

// Wrap attaches a Kind and message to an underlying cause.
func Wrap(cause error, kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: errors.WithStack(cause)}
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
