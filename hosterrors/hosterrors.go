// Package hosterrors defines the error taxonomy shared by the transport,
// RPC, and render layers of the action host. Errors are tagged by Kind so
// callers can branch with errors.Is against the exported sentinels instead
// of matching on strings.
package hosterrors

import "fmt"

// Kind identifies one of the taxonomy entries from the host's error design.
type Kind string

const (
	AuthInvalid          Kind = "AUTH_INVALID"
	ConnectionFailed     Kind = "CONNECTION_FAILED"
	SendFailed           Kind = "SEND_FAILED"
	TransportClosed      Kind = "TRANSPORT_CLOSED"
	RPCSchema            Kind = "RPC_SCHEMA"
	RPCTimeout           Kind = "RPC_TIMEOUT"
	ProtocolMismatch     Kind = "PROTOCOL_MISMATCH"
	Canceled             Kind = "CANCELED"
	TransactionClosed    Kind = "TRANSACTION_CLOSED"
	GroupContainsExclusive Kind = "GROUP_CONTAINS_EXCLUSIVE"
	RenderBusy           Kind = "RENDER_BUSY"
)

// Error wraps an underlying cause with a taxonomy Kind. A nil-cause Error is
// valid and common: most of these kinds are raised directly, not wrapped
// from some lower-level failure.
type Error struct {
	Kind Kind
	Err  error
}

// New builds an Error carrying msg as its cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf("%s", msg)}
}

// Newf builds an Error with a formatted message as its cause.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap tags an existing error with a Kind.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, hosterrors.Sentinel(hosterrors.Canceled)) match any
// *Error of the same Kind, whatever its cause. A target that is not an
// *Error never matches.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel returns a comparable *Error for a Kind, for use with errors.Is.
func Sentinel(kind Kind) *Error {
	return &Error{Kind: kind}
}
