package peer

import (
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/dodomondo0/fool-p2p-app/internal/protocol"
)

// ClientPeer is the answering side of one negotiation: it accepts the
// host's offer, produces the answer, and carries application traffic once
// the adopted data channel opens.
type ClientPeer struct {
	transport Transport
	hostID    string

	mu      sync.Mutex
	session TransportSession
	state   ConnectionState
	ready   bool

	onMessage     func(Message)
	onCandidate   func(webrtc.ICECandidateInit)
	onStateChange func(ConnectionState)
}

func NewClientPeer(transport Transport, hostID string) *ClientPeer {
	return &ClientPeer{
		transport: transport,
		hostID:    hostID,
		state:     StateIdle,
	}
}

// OnMessage registers the callback for decoded inbound messages.
func (c *ClientPeer) OnMessage(fn func(Message)) { c.onMessage = fn }

// OnCandidate registers the callback for local candidates to relay.
func (c *ClientPeer) OnCandidate(fn func(webrtc.ICECandidateInit)) { c.onCandidate = fn }

// OnStateChange registers the callback for connection state transitions.
func (c *ClientPeer) OnStateChange(fn func(ConnectionState)) { c.onStateChange = fn }

// AcceptOffer applies the host's offer and returns the local answer for
// relaying back. It fails with ErrNegotiation if a live session exists.
func (c *ClientPeer) AcceptOffer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	c.mu.Lock()
	if c.session != nil && c.state != StateClosed {
		c.mu.Unlock()
		return webrtc.SessionDescription{}, protocol.WrapError("accept offer", protocol.ErrNegotiation, c.hostID)
	}
	c.mu.Unlock()

	session, err := c.transport.NewAnswerSession(c.hostID)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}

	session.OnStateChange(func(state webrtc.PeerConnectionState) {
		c.handleTransportState(state)
	})
	session.OnCandidate(func(cand webrtc.ICECandidateInit) {
		if c.onCandidate != nil {
			c.onCandidate(cand)
		}
	})
	session.OnOpen(func() {
		c.mu.Lock()
		c.ready = true
		c.mu.Unlock()
	})
	session.OnMessage(func(data []byte) {
		msg, err := DecodeMessage(data)
		if err != nil {
			slog.Warn("dropping undecodable message", "host", c.hostID, "error", err)
			return
		}
		if c.onMessage != nil {
			c.onMessage(msg)
		}
	})

	c.mu.Lock()
	c.session = session
	c.state = StateNegotiating
	c.mu.Unlock()

	answer, err := session.Answer(offer)
	if err != nil {
		c.Close()
		return webrtc.SessionDescription{}, err
	}

	slog.Info("answer created", "host", c.hostID)
	return answer, nil
}

// AddRemoteCandidate forwards a relayed host candidate to the transport.
// Candidates for a closed or not-yet-started session are logged no-ops.
func (c *ClientPeer) AddRemoteCandidate(cand webrtc.ICECandidateInit) error {
	c.mu.Lock()
	session := c.session
	closed := c.state == StateClosed
	c.mu.Unlock()

	if session == nil || closed {
		slog.Debug("candidate dropped, no live session", "host", c.hostID)
		return nil
	}
	return session.AddRemoteCandidate(cand)
}

func (c *ClientPeer) handleTransportState(state webrtc.PeerConnectionState) {
	var notify ConnectionState
	switch state {
	case webrtc.PeerConnectionStateConnected:
		c.mu.Lock()
		if c.state != StateClosed {
			c.state = StateConnected
			c.ready = true
		}
		c.mu.Unlock()
		notify = StateConnected

	case webrtc.PeerConnectionStateFailed,
		webrtc.PeerConnectionStateClosed,
		webrtc.PeerConnectionStateDisconnected:
		c.Close()
		notify = StateClosed

	default:
		return
	}

	if c.onStateChange != nil {
		c.onStateChange(notify)
	}
}

// Send delivers one message to the host, returning false when the channel
// is not connected and ready.
func (c *ClientPeer) Send(msg Message) bool {
	c.mu.Lock()
	ok := c.state == StateConnected && c.ready
	session := c.session
	c.mu.Unlock()
	if !ok {
		slog.Debug("host channel not ready, message not sent", "type", msg.Type)
		return false
	}

	data, err := EncodeMessage(msg)
	if err != nil {
		slog.Error("failed to encode message", "type", msg.Type, "error", err)
		return false
	}
	if err := session.Send(data); err != nil {
		slog.Warn("send to host failed", "error", err)
		return false
	}
	return true
}

// State returns the current connection state.
func (c *ClientPeer) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close tears the session down. Closing twice is a no-op.
func (c *ClientPeer) Close() {
	c.mu.Lock()
	session := c.session
	alreadyClosed := c.state == StateClosed
	c.state = StateClosed
	c.ready = false
	c.mu.Unlock()

	if !alreadyClosed && session != nil {
		if err := session.Close(); err != nil {
			slog.Warn("error closing transport session", "host", c.hostID, "error", err)
		}
	}
}
