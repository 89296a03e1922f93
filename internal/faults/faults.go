// Package faults defines the typed failure taxonomy shared by all services.
package faults

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure. Handlers map kinds to transport codes;
// services never see HTTP.
type Kind int

const (
	// Internal is the zero-ish default for storage and infrastructure faults.
	Internal Kind = iota
	// Unauthenticated covers missing, malformed, tampered and expired tokens.
	Unauthenticated
	// Forbidden means the identity is valid but the role lacks the capability.
	Forbidden
	// InvalidInput means the request shape or values are malformed.
	InvalidInput
	// InvalidState means the operation is not legal for the entity's current state.
	InvalidState
	// Conflict means the operation would violate a uniqueness invariant.
	Conflict
	// NotFound means a referenced entity is absent.
	NotFound
)

func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case InvalidInput:
		return "invalid_input"
	case InvalidState:
		return "invalid_state"
	case Conflict:
		return "conflict"
	case NotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is a classified failure with a caller-facing message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a classified error with a fixed message.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error while preserving it for errors.Is/As.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the classification from an error chain. Unclassified errors
// are treated as Internal so storage faults never leak as domain outcomes.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the caller-facing message, or a generic one for
// unclassified errors.
func Message(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Msg
	}
	return "internal error"
}
