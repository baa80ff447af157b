package protocol

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the rendezvous core.
var (
	ErrRoomConflict      = errors.New("room already exists")
	ErrRoomNotFound      = errors.New("room not found")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrInvalidRoomName   = errors.New("invalid room name")
	ErrUnknownPeer       = errors.New("unknown peer")
	ErrNegotiation       = errors.New("negotiation already active")
	ErrTransportFailure  = errors.New("transport failure")
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrSessionClosed     = errors.New("session closed")
)

// Error tags an underlying error with the operation that produced it.
type Error struct {
	Op      string
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with the operation name.
func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

// WrapError wraps err with the operation name and free-form details.
func WrapError(op string, err error, details string) *Error {
	return &Error{Op: op, Err: err, Details: details}
}

// TransportError chains cause under ErrTransportFailure so callers can match
// the category with errors.Is while keeping the full diagnostic detail.
func TransportError(op string, cause error) *Error {
	return &Error{Op: op, Err: errors.Join(ErrTransportFailure, cause)}
}
