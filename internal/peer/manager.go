package peer

import (
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/dodomondo0/fool-p2p-app/internal/protocol"
)

// peerConn is the bookkeeping for one client: its state machine, transport
// session, and channel readiness. Each peerConn has its own lock so one
// client's transport callbacks never contend with another's.
type peerConn struct {
	id string

	mu      sync.Mutex
	state   ConnectionState
	session TransportSession
	ready   bool
}

func (p *peerConn) currentState() ConnectionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Manager owns one connection state machine per client the host negotiates
// with, and fans application messages out and in once transports are live.
type Manager struct {
	transport Transport

	mu    sync.Mutex // guards the peers map only
	peers map[string]*peerConn

	onMessage     func(clientID string, msg Message)
	onCandidate   func(clientID string, cand webrtc.ICECandidateInit)
	onStateChange func(clientID string, state ConnectionState)
}

func NewManager(transport Transport) *Manager {
	return &Manager{
		transport: transport,
		peers:     make(map[string]*peerConn),
	}
}

// OnMessage registers the callback for decoded inbound application messages.
// Register callbacks before beginning any negotiation.
func (m *Manager) OnMessage(fn func(clientID string, msg Message)) { m.onMessage = fn }

// OnCandidate registers the callback for locally gathered candidates that
// must be relayed to the client.
func (m *Manager) OnCandidate(fn func(clientID string, cand webrtc.ICECandidateInit)) {
	m.onCandidate = fn
}

// OnPeerStateChange registers the callback for per-client state transitions.
func (m *Manager) OnPeerStateChange(fn func(clientID string, state ConnectionState)) {
	m.onStateChange = fn
}

func (m *Manager) peer(clientID string) *peerConn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peers[clientID]
}

// BeginNegotiation creates a transport session and data channel for
// clientID and returns the local offer for relaying. It fails with
// ErrNegotiation while a non-closed session for clientID exists.
func (m *Manager) BeginNegotiation(clientID string) (webrtc.SessionDescription, error) {
	m.mu.Lock()
	if existing, ok := m.peers[clientID]; ok && existing.currentState() != StateClosed {
		m.mu.Unlock()
		return webrtc.SessionDescription{}, protocol.WrapError("begin negotiation", protocol.ErrNegotiation, clientID)
	}
	m.mu.Unlock()

	session, err := m.transport.NewSession(clientID)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}

	p := &peerConn{id: clientID, state: StateOffering, session: session}

	// Track the entry before registering callbacks; the transport may report
	// a state change the moment a callback is in place, and that event has to
	// find the entry.
	m.mu.Lock()
	m.peers[clientID] = p
	m.mu.Unlock()

	session.OnStateChange(func(state webrtc.PeerConnectionState) {
		m.handleTransportState(clientID, state)
	})
	session.OnCandidate(func(cand webrtc.ICECandidateInit) {
		if m.onCandidate != nil {
			m.onCandidate(clientID, cand)
		}
	})
	session.OnOpen(func() {
		p.mu.Lock()
		p.ready = true
		p.mu.Unlock()
	})
	session.OnMessage(func(data []byte) {
		msg, err := DecodeMessage(data)
		if err != nil {
			slog.Warn("dropping undecodable message", "client", clientID, "error", err)
			return
		}
		if m.onMessage != nil {
			m.onMessage(clientID, msg)
		}
	})

	offer, err := session.Offer()
	if err != nil {
		session.Close()
		m.mu.Lock()
		if m.peers[clientID] == p {
			delete(m.peers, clientID)
		}
		m.mu.Unlock()
		return webrtc.SessionDescription{}, err
	}

	slog.Info("offer created", "client", clientID)
	return offer, nil
}

// OfferSent records that the offer for clientID has been relayed and the
// host is now waiting on the answer.
func (m *Manager) OfferSent(clientID string) {
	p := m.peer(clientID)
	if p == nil {
		return
	}
	p.mu.Lock()
	if p.state == StateOffering {
		p.state = StateAwaitingAnswer
	}
	p.mu.Unlock()
}

// AcceptAnswer applies the client's answer. It fails with ErrUnknownPeer
// when no live session exists for clientID.
func (m *Manager) AcceptAnswer(clientID string, answer webrtc.SessionDescription) error {
	p := m.peer(clientID)
	if p == nil {
		return protocol.WrapError("accept answer", protocol.ErrUnknownPeer, clientID)
	}

	p.mu.Lock()
	if p.state == StateClosed {
		p.mu.Unlock()
		return protocol.WrapError("accept answer", protocol.ErrUnknownPeer, clientID)
	}
	session := p.session
	p.mu.Unlock()

	if err := session.SetRemoteDescription(answer); err != nil {
		return err
	}

	p.mu.Lock()
	if p.state == StateOffering || p.state == StateAwaitingAnswer {
		p.state = StateNegotiating
	}
	p.mu.Unlock()

	slog.Info("answer accepted", "client", clientID)
	return nil
}

// AddRemoteCandidate forwards a relayed candidate to the transport. Late
// candidates for closed or unknown sessions are logged no-ops; trickle ICE
// routinely outlives a connection attempt.
func (m *Manager) AddRemoteCandidate(clientID string, cand webrtc.ICECandidateInit) error {
	p := m.peer(clientID)
	if p == nil {
		slog.Debug("candidate for unknown client dropped", "client", clientID)
		return nil
	}

	p.mu.Lock()
	if p.state == StateClosed {
		p.mu.Unlock()
		slog.Debug("candidate for closed session dropped", "client", clientID)
		return nil
	}
	session := p.session
	p.mu.Unlock()

	return session.AddRemoteCandidate(cand)
}

// handleTransportState maps transport states onto the per-client machine.
func (m *Manager) handleTransportState(clientID string, state webrtc.PeerConnectionState) {
	p := m.peer(clientID)
	if p == nil {
		return
	}
	slog.Debug("transport state", "client", clientID, "state", state.String())

	switch state {
	case webrtc.PeerConnectionStateConnected:
		p.mu.Lock()
		if p.state != StateClosed {
			p.state = StateConnected
			p.ready = true
		}
		p.mu.Unlock()
		m.notifyState(clientID, StateConnected)

	case webrtc.PeerConnectionStateFailed,
		webrtc.PeerConnectionStateClosed,
		webrtc.PeerConnectionStateDisconnected:
		m.closePeer(p)
		m.notifyState(clientID, StateClosed)
	}
}

func (m *Manager) notifyState(clientID string, state ConnectionState) {
	if m.onStateChange != nil {
		m.onStateChange(clientID, state)
	}
}

// closePeer drives one client to StateClosed and removes its bookkeeping.
func (m *Manager) closePeer(p *peerConn) {
	p.mu.Lock()
	alreadyClosed := p.state == StateClosed
	p.state = StateClosed
	p.ready = false
	session := p.session
	p.mu.Unlock()

	if !alreadyClosed && session != nil {
		if err := session.Close(); err != nil {
			slog.Warn("error closing transport session", "client", p.id, "error", err)
		}
	}

	m.mu.Lock()
	if m.peers[p.id] == p {
		delete(m.peers, p.id)
	}
	m.mu.Unlock()
}

// Disconnect closes the connection to one client. Disconnecting an unknown
// or already-closed client is a no-op.
func (m *Manager) Disconnect(clientID string) {
	p := m.peer(clientID)
	if p == nil {
		return
	}
	m.closePeer(p)
	m.notifyState(clientID, StateClosed)
}

// Send delivers one message to clientID. It returns false without side
// effects when the client's channel is not connected and ready; transport
// write failures are logged, never raised.
func (m *Manager) Send(clientID string, msg Message) bool {
	p := m.peer(clientID)
	if p == nil {
		return false
	}

	p.mu.Lock()
	ok := p.state == StateConnected && p.ready
	session := p.session
	p.mu.Unlock()
	if !ok {
		slog.Debug("client not ready, message not sent", "client", clientID, "type", msg.Type)
		return false
	}

	data, err := EncodeMessage(msg)
	if err != nil {
		slog.Error("failed to encode message", "type", msg.Type, "error", err)
		return false
	}
	if err := session.Send(data); err != nil {
		slog.Warn("send failed", "client", clientID, "error", err)
		return false
	}
	return true
}

// Broadcast sends msg to every tracked client except exclude, returning the
// number of successful sends. The client set is snapshotted first so a
// disconnect during the fan-out cannot corrupt iteration.
func (m *Manager) Broadcast(msg Message, exclude string) int {
	m.mu.Lock()
	ids := make([]string, 0, len(m.peers))
	for id := range m.peers {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	count := 0
	for _, id := range ids {
		if id == exclude {
			continue
		}
		if m.Send(id, msg) {
			count++
		}
	}
	slog.Debug("broadcast complete", "type", msg.Type, "delivered", count)
	return count
}

// State reports the connection state for clientID.
func (m *Manager) State(clientID string) (ConnectionState, bool) {
	p := m.peer(clientID)
	if p == nil {
		return StateClosed, false
	}
	return p.currentState(), true
}

// Clients returns a snapshot of the tracked client identities.
func (m *Manager) Clients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.peers))
	for id := range m.peers {
		ids = append(ids, id)
	}
	return ids
}

// CloseAll best-effort closes every tracked session, then clears all
// bookkeeping unconditionally. Calling it twice is a no-op.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	peers := m.peers
	m.peers = make(map[string]*peerConn)
	m.mu.Unlock()

	for _, p := range peers {
		p.mu.Lock()
		alreadyClosed := p.state == StateClosed
		p.state = StateClosed
		p.ready = false
		session := p.session
		p.mu.Unlock()
		if alreadyClosed || session == nil {
			continue
		}
		// A close failure on one peer must not block cleanup of the others.
		if err := session.Close(); err != nil {
			slog.Warn("error closing transport session", "client", p.id, "error", err)
		}
	}
}
