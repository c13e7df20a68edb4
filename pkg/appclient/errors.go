package appclient

import (
	"errors"
	"fmt"

	"github.com/morezero/zomecall/pkg/transport"
)

// Kind classifies an invocation failure.
type Kind string

// Failure kinds.
const (
	KindConnection       Kind = "connection_error"
	KindNoContextFound   Kind = "no_context_found"
	KindResolution       Kind = "resolution_error"
	KindInvocation       Kind = "invocation_error"
	KindSerialization    Kind = "serialization_error"
	KindConnectionClosed Kind = "connection_closed"
	KindTeardown         Kind = "teardown_error"
)

// ErrAlreadyClosed is the cause of a teardown error on a client that was already closed.
var ErrAlreadyClosed = errors.New("appclient: client already closed")

// Error is a structured failure of one step of an invocation attempt.
// HostType carries the conductor's error type when the host reported the failure.
type Error struct {
	Kind     Kind
	Message  string
	HostType string
	Cause    error
}

func (e *Error) Error() string {
	msg := string(e.Kind) + ": " + e.Message
	if e.HostType != "" {
		msg += " (" + e.HostType + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: KindInvocation}) works.
// A no_context_found error is also a resolution error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind || (t.Kind == KindResolution && e.Kind == KindNoContextFound)
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// hostError builds an error carrying the host-supplied cause.
func hostError(kind Kind, hostType, message string) *Error {
	return &Error{Kind: kind, Message: message, HostType: hostType}
}

// requestError classifies a transport failure: a closed channel is always
// connection_closed, anything else is a failure of the step in progress.
func requestError(kind Kind, step string, err error) *Error {
	if transport.IsClosed(err) {
		return newError(KindConnectionClosed, fmt.Sprintf("connection closed during %s", step), err)
	}
	return newError(kind, fmt.Sprintf("%s failed", step), err)
}
