package signaling

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/dodomondo0/fool-p2p-app/internal/protocol"
)

// State is the session's relationship to the relay.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	InRoom
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case InRoom:
		return "in_room"
	default:
		return "unknown"
	}
}

// JoinResult reports the relay's answer to a join request.
type JoinResult struct {
	Room    string
	Success bool
	Message string
}

// Session represents one device on the control channel. Its identity is
// generated once at construction and is stable across reconnect attempts
// from the same session object.
//
// Inbound envelope callbacks are delivered through the dispatch function so
// the caller decides which goroutine runs them; transport I/O never touches
// caller-owned state directly.
type Session struct {
	id        string
	serverURL string
	dispatch  func(func())

	mu       sync.Mutex
	state    State
	w        wire
	room     string
	password string
	isHost   bool
	roster   Roster

	onSignal       func(*protocol.Envelope)
	onHostFound    func(hostID string)
	onJoined       func(JoinResult)
	onRosterChange func([]string)
	onDisconnect   func()
}

// Option configures a Session.
type Option func(*Session)

// WithDispatch routes every callback through run. The caller typically
// passes a closure that posts to its main loop.
func WithDispatch(run func(func())) Option {
	return func(s *Session) { s.dispatch = run }
}

// NewSession creates a session for the relay at serverURL. No connection is
// made until Connect.
func NewSession(serverURL string, opts ...Option) *Session {
	s := &Session{
		id:        uuid.NewString(),
		serverURL: serverURL,
		dispatch:  func(f func()) { f() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session's process-lifetime identity.
func (s *Session) ID() string {
	return s.id
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Roster returns a snapshot of the player roster.
func (s *Session) Roster() []string {
	return s.roster.Snapshot()
}

// OnSignal registers the callback for relayed negotiation envelopes.
func (s *Session) OnSignal(fn func(*protocol.Envelope)) { s.onSignal = fn }

// OnHostFound registers the callback fired when another session announces
// itself as host of the current room.
func (s *Session) OnHostFound(fn func(hostID string)) { s.onHostFound = fn }

// OnJoined registers the callback for join results.
func (s *Session) OnJoined(fn func(JoinResult)) { s.onJoined = fn }

// OnRosterChange registers the callback fired with a roster snapshot after
// every player_joined/player_left notification.
func (s *Session) OnRosterChange(fn func([]string)) { s.onRosterChange = fn }

// OnDisconnect registers the callback fired when the control channel drops.
func (s *Session) OnDisconnect(fn func()) { s.onDisconnect = fn }

// Connect dials the relay. A connect failure is terminal: it is reported
// with its cause chain and never retried internally. If a room was requested
// while disconnected, the join is flushed as soon as the channel is up.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Disconnected {
		s.mu.Unlock()
		return nil
	}
	s.state = Connecting
	s.mu.Unlock()

	c, err := dial(ctx, s.serverURL)
	if err != nil {
		s.mu.Lock()
		s.state = Disconnected
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.w = c
	s.state = Connected
	desired := s.room
	s.mu.Unlock()

	go s.readLoop(c)

	slog.Info("connected to signaling server", "id", s.id)
	if desired != "" {
		s.sendJoin()
	}
	return nil
}

// JoinRoom requests to create (asHost) or enter a room. Issued before the
// transport connects, the request is recorded and replayed on connect; it is
// never lost.
func (s *Session) JoinRoom(room, password string, asHost bool) error {
	if !protocol.ValidRoomName(room) {
		return protocol.WrapError("join room", protocol.ErrInvalidRoomName, room)
	}

	s.mu.Lock()
	s.room = room
	s.password = password
	s.isHost = asHost
	connected := s.state >= Connected
	s.mu.Unlock()

	if connected {
		s.sendJoin()
	} else {
		slog.Debug("join deferred until connect", "room", room)
	}
	return nil
}

func (s *Session) sendJoin() {
	s.mu.Lock()
	w, room, password, isHost := s.w, s.room, s.password, s.isHost
	s.mu.Unlock()
	if w == nil {
		return
	}

	env, err := protocol.NewEnvelope(protocol.KindJoin, protocol.JoinPayload{
		Password: password,
		IsHost:   isHost,
	})
	if err != nil {
		slog.Error("failed to build join envelope", "error", err)
		return
	}
	env.Sender = s.id
	env.Room = room
	w.send(env)
}

// SendSignal relays a typed signal payload to target through the relay.
func (s *Session) SendSignal(target, signalType string, data any) error {
	s.mu.Lock()
	w, room := s.w, s.room
	s.mu.Unlock()
	if w == nil {
		return protocol.NewError("send signal", protocol.ErrSessionClosed)
	}
	if room == "" {
		return protocol.WrapError("send signal", protocol.ErrRoomNotFound, "not in a room")
	}

	env, err := protocol.NewSignal(s.id, target, room, signalType, data)
	if err != nil {
		return err
	}
	w.send(env)
	return nil
}

func (s *Session) readLoop(w wire) {
	for env := range w.recv() {
		s.handleEnvelope(env)
	}

	s.mu.Lock()
	stale := s.w != w
	if !stale {
		s.w = nil
		s.state = Disconnected
	}
	fn := s.onDisconnect
	s.mu.Unlock()

	if !stale {
		slog.Info("signaling connection closed", "id", s.id)
		if fn != nil {
			s.dispatch(fn)
		}
	}
}

// handleEnvelope routes one inbound envelope. Malformed payloads are logged
// and dropped; they never take the session down.
func (s *Session) handleEnvelope(env *protocol.Envelope) {
	switch env.Kind {
	case protocol.KindJoined:
		var payload protocol.JoinedPayload
		if err := env.DecodePayload(&payload); err != nil {
			slog.Warn("dropping malformed joined envelope", "error", err)
			return
		}
		s.handleJoined(env.Room, payload)

	case protocol.KindHostAvailable:
		var payload protocol.HostAvailablePayload
		if err := env.DecodePayload(&payload); err != nil {
			slog.Warn("dropping malformed host_available envelope", "error", err)
			return
		}
		s.handleHostAvailable(payload.HostID)

	case protocol.KindSignal:
		var payload protocol.SignalPayload
		if err := env.DecodePayload(&payload); err != nil {
			slog.Warn("dropping malformed signal envelope", "sender", env.Sender, "error", err)
			return
		}
		s.handleSignal(env, payload)

	default:
		slog.Debug("dropping envelope of unexpected kind", "kind", env.Kind)
	}
}

func (s *Session) handleJoined(room string, payload protocol.JoinedPayload) {
	success := payload.Status == protocol.StatusSuccess

	s.mu.Lock()
	if success {
		s.state = InRoom
	}
	isHost := s.isHost
	fn := s.onJoined
	s.mu.Unlock()

	// The host announces itself the moment the room is confirmed, so clients
	// already in the room discover it. This is a push at announce time only;
	// it is not replayed to later joiners.
	if success && isHost {
		s.announceHost()
	}

	if fn != nil {
		result := JoinResult{Room: room, Success: success, Message: payload.Message}
		s.dispatch(func() { fn(result) })
	}
}

func (s *Session) announceHost() {
	s.mu.Lock()
	w, room := s.w, s.room
	s.mu.Unlock()
	if w == nil {
		return
	}

	env, err := protocol.NewEnvelope(protocol.KindHostAvailable, protocol.HostAvailablePayload{HostID: s.id})
	if err != nil {
		slog.Error("failed to build host_available envelope", "error", err)
		return
	}
	env.Sender = s.id
	env.Room = room
	w.send(env)
	slog.Info("announced as host", "room", room, "id", s.id)
}

func (s *Session) handleHostAvailable(hostID string) {
	s.mu.Lock()
	isHost := s.isHost
	fn := s.onHostFound
	s.mu.Unlock()

	// A session never treats itself as a discovered host.
	if isHost || hostID == s.id {
		return
	}
	if fn != nil {
		s.dispatch(func() { fn(hostID) })
	}
}

func (s *Session) handleSignal(env *protocol.Envelope, payload protocol.SignalPayload) {
	switch payload.Type {
	case protocol.SignalPlayerJoined, protocol.SignalPlayerLeft:
		var player protocol.PlayerPayload
		if err := payload.Decode(&player); err != nil || player.PlayerName == "" {
			slog.Warn("dropping malformed player notification", "type", payload.Type)
			return
		}
		changed := false
		if payload.Type == protocol.SignalPlayerJoined {
			changed = s.roster.Add(player.PlayerName)
		} else {
			changed = s.roster.Remove(player.PlayerName)
		}
		if changed && s.onRosterChange != nil {
			snapshot := s.roster.Snapshot()
			fn := s.onRosterChange
			s.dispatch(func() { fn(snapshot) })
		}

	default:
		if s.onSignal != nil {
			fn := s.onSignal
			s.dispatch(func() { fn(env) })
		}
	}
}

// attach runs the session over an already-established wire. Tests use it to
// drive the session with an in-memory channel pair.
func (s *Session) attach(w wire) {
	s.mu.Lock()
	s.w = w
	s.state = Connected
	desired := s.room
	s.mu.Unlock()

	go s.readLoop(w)

	if desired != "" {
		s.sendJoin()
	}
}

// Close shuts the control channel down. Closing an already-closed session is
// a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	w := s.w
	s.w = nil
	s.state = Disconnected
	s.mu.Unlock()

	if w != nil {
		w.close()
	}
}
