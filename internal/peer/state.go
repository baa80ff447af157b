// Package peer owns the per-client connection state machines on the host
// side, the answering peer on the client side, and the data-channel message
// codec shared by both.
package peer

// ConnectionState is the host-side lifecycle of one client connection.
// StateClosed is absorbing: re-negotiating with the same identity requires
// discarding the old entry and beginning negotiation again.
type ConnectionState int

const (
	StateIdle ConnectionState = iota
	StateOffering
	StateAwaitingAnswer
	StateNegotiating
	StateConnected
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOffering:
		return "offering"
	case StateAwaitingAnswer:
		return "awaiting_answer"
	case StateNegotiating:
		return "negotiating"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
