// Package cerrors defines the error taxonomy shared by every layer of this
// library. It replaces the checked-exception hierarchy of the original
// protocol implementation (spec.md §9) with a single sum type: a Kind plus
// an optional wrapped cause, so callers use ordinary errors.Is/errors.As
// instead of type-switching on a tree of exception classes.
package cerrors

import "fmt"

// Kind classifies an Error per spec.md §7.
type Kind int

const (
	// KindTransport covers socket-not-connected, read/write failure, and TLS
	// handshake failure.
	KindTransport Kind = iota

	// KindAuthentication covers a failed or unparsable tp.deviceauth
	// handshake reply.
	KindAuthentication

	// KindTimeout covers a request that received no correlated response
	// within its deadline.
	KindTimeout

	// KindProtocol covers a response whose type fell in a namespace's error
	// set (LAUNCH_ERROR, INVALID_REQUEST, media error types, ...).
	KindProtocol

	// KindState covers an operation issued against a closed connection or a
	// torn-down application session.
	KindState

	// KindParse covers a response envelope that could not be decoded into
	// the expected schema.
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAuthentication:
		return "authentication"
	case KindTimeout:
		return "timeout"
	case KindProtocol:
		return "protocol"
	case KindState:
		return "state"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by every public operation in
// this module.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is supports errors.Is(err, cerrors.ErrTimeout)-style comparisons against
// the sentinel Kind values below, in addition to normal *Error comparisons.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	if other.Message == "" && other.Cause == nil {
		// a bare Kind sentinel, e.g. ErrTimeout
		return e.Kind == other.Kind
	}
	return e.Kind == other.Kind && e.Message == other.Message
}

// New constructs an Error of the given Kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error of the given Kind around cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Sentinel Kind markers for errors.Is comparisons, e.g.:
//
//	if errors.Is(err, cerrors.ErrTimeout) { ... }
var (
	ErrTransport      = &Error{Kind: KindTransport}
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrTimeout        = &Error{Kind: KindTimeout}
	ErrProtocol       = &Error{Kind: KindProtocol}
	ErrState          = &Error{Kind: KindState}
	ErrParse          = &Error{Kind: KindParse}
)
