package peer

import (
	"github.com/pion/webrtc/v4"
)

// Transport produces data-plane sessions. The production implementation is
// backed by pion; tests use an in-memory fake.
type Transport interface {
	// NewSession creates the offering side of a connection to remoteID. The
	// session owns the data channel.
	NewSession(remoteID string) (TransportSession, error)

	// NewAnswerSession creates the answering side of a connection to
	// remoteID. The data channel is adopted from the remote offer.
	NewAnswerSession(remoteID string) (TransportSession, error)
}

// TransportSession is one peer-to-peer connection attempt. Session
// descriptions and candidates are opaque to this layer; callbacks may fire
// on transport-owned goroutines.
type TransportSession interface {
	// Offer generates the local offer (offering side only).
	Offer() (webrtc.SessionDescription, error)

	// Answer applies the remote offer and generates the local answer
	// (answering side only).
	Answer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error)

	// SetRemoteDescription applies the remote answer (offering side only).
	SetRemoteDescription(desc webrtc.SessionDescription) error

	// AddRemoteCandidate adds a candidate received through signaling.
	AddRemoteCandidate(cand webrtc.ICECandidateInit) error

	// OnStateChange registers the transport state callback.
	OnStateChange(fn func(webrtc.PeerConnectionState))

	// OnCandidate registers the local candidate callback for trickle ICE.
	OnCandidate(fn func(webrtc.ICECandidateInit))

	// OnOpen registers the data channel ready callback.
	OnOpen(fn func())

	// OnMessage registers the inbound data callback.
	OnMessage(fn func([]byte))

	// Send writes one message to the data channel.
	Send(data []byte) error

	// Close tears the connection down. Closing twice is a no-op.
	Close() error
}
