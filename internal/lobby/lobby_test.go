package lobby

import (
	"context"
	"sync"
	"testing"

	"github.com/pion/webrtc/v4"

	"github.com/dodomondo0/fool-p2p-app/internal/peer"
	"github.com/dodomondo0/fool-p2p-app/internal/protocol"
	"github.com/dodomondo0/fool-p2p-app/internal/signaling"
)

// sentSignal records one SendSignal call made against the fake control
// channel.
type sentSignal struct {
	target     string
	signalType string
	data       any
}

// fakeControl is an in-memory controlSession. Inbound traffic is injected by
// invoking the registered callbacks; outbound signals are recorded.
type fakeControl struct {
	id string

	mu     sync.Mutex
	roster []string
	sent   []sentSignal
	joins  int
	closed bool

	onJoined       func(signaling.JoinResult)
	onHostFound    func(hostID string)
	onSignal       func(*protocol.Envelope)
	onRosterChange func([]string)
	onDisconnect   func()
}

func newFakeControl(id string) *fakeControl {
	return &fakeControl{id: id}
}

func (f *fakeControl) ID() string                        { return f.id }
func (f *fakeControl) Connect(ctx context.Context) error { return nil }

func (f *fakeControl) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeControl) JoinRoom(room, password string, asHost bool) error {
	if !protocol.ValidRoomName(room) {
		return protocol.WrapError("join room", protocol.ErrInvalidRoomName, room)
	}
	f.mu.Lock()
	f.joins++
	f.mu.Unlock()
	return nil
}

func (f *fakeControl) SendSignal(target, signalType string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentSignal{target: target, signalType: signalType, data: data})
	return nil
}

func (f *fakeControl) Roster() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.roster...)
}

func (f *fakeControl) setRoster(players ...string) {
	f.mu.Lock()
	f.roster = players
	f.mu.Unlock()
}

func (f *fakeControl) OnJoined(fn func(signaling.JoinResult)) { f.onJoined = fn }
func (f *fakeControl) OnHostFound(fn func(hostID string))     { f.onHostFound = fn }
func (f *fakeControl) OnSignal(fn func(*protocol.Envelope))   { f.onSignal = fn }
func (f *fakeControl) OnRosterChange(fn func([]string))       { f.onRosterChange = fn }
func (f *fakeControl) OnDisconnect(fn func())                 { f.onDisconnect = fn }

// signal delivers a relayed signal envelope from sender.
func (f *fakeControl) signal(t *testing.T, sender, signalType string, data any) {
	t.Helper()
	env, err := protocol.NewSignal(sender, f.id, "kitchen", signalType, data)
	if err != nil {
		t.Fatal(err)
	}
	f.onSignal(env)
}

// sentTo filters the recorded signals by target and type.
func (f *fakeControl) sentTo(target, signalType string) []sentSignal {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentSignal
	for _, s := range f.sent {
		if s.target == target && s.signalType == signalType {
			out = append(out, s)
		}
	}
	return out
}

// fakeConn is an in-memory peer.TransportSession.
type fakeConn struct {
	mu         sync.Mutex
	onState    func(webrtc.PeerConnectionState)
	onCand     func(webrtc.ICECandidateInit)
	onOpen     func()
	onMsg      func([]byte)
	sent       [][]byte
	candidates []webrtc.ICECandidateInit
	closed     int
}

func (c *fakeConn) Offer() (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0"}, nil
}

func (c *fakeConn) Answer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0"}, nil
}

func (c *fakeConn) SetRemoteDescription(desc webrtc.SessionDescription) error { return nil }

func (c *fakeConn) AddRemoteCandidate(cand webrtc.ICECandidateInit) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.candidates = append(c.candidates, cand)
	return nil
}

func (c *fakeConn) OnStateChange(fn func(webrtc.PeerConnectionState)) { c.onState = fn }
func (c *fakeConn) OnCandidate(fn func(webrtc.ICECandidateInit))      { c.onCand = fn }
func (c *fakeConn) OnOpen(fn func())                                  { c.onOpen = fn }
func (c *fakeConn) OnMessage(fn func([]byte))                         { c.onMsg = fn }

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

// connect drives the fake transport to the connected, channel-open state.
func (c *fakeConn) connect() {
	c.onOpen()
	c.onState(webrtc.PeerConnectionStateConnected)
}

// fail reports a terminal transport failure.
func (c *fakeConn) fail() {
	c.onState(webrtc.PeerConnectionStateFailed)
}

// recv injects one inbound data-channel message.
func (c *fakeConn) recv(t *testing.T, msgType string, payload any) {
	t.Helper()
	msg, err := peer.NewMessage(msgType, payload)
	if err != nil {
		t.Fatal(err)
	}
	data, err := peer.EncodeMessage(msg)
	if err != nil {
		t.Fatal(err)
	}
	c.onMsg(data)
}

// messages decodes every frame written to the connection.
func (c *fakeConn) messages(t *testing.T) []peer.Message {
	t.Helper()
	c.mu.Lock()
	frames := append([][]byte(nil), c.sent...)
	c.mu.Unlock()

	out := make([]peer.Message, 0, len(frames))
	for _, f := range frames {
		msg, err := peer.DecodeMessage(f)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, msg)
	}
	return out
}

// playerNames extracts the player names from the messages of the given type.
func playerNames(t *testing.T, msgs []peer.Message, msgType string) []string {
	t.Helper()
	var out []string
	for _, msg := range msgs {
		if msg.Type != msgType {
			continue
		}
		var p peer.PlayerPayload
		if err := msg.DecodePayload(&p); err != nil {
			t.Fatal(err)
		}
		out = append(out, p.PlayerName)
	}
	return out
}

// fakeWebRTC is an in-memory peer.Transport handing out fakeConns.
type fakeWebRTC struct {
	mu       sync.Mutex
	sessions map[string]*fakeConn
}

func newFakeWebRTC() *fakeWebRTC {
	return &fakeWebRTC{sessions: make(map[string]*fakeConn)}
}

func (f *fakeWebRTC) NewSession(remoteID string) (peer.TransportSession, error) {
	c := &fakeConn{}
	f.mu.Lock()
	f.sessions[remoteID] = c
	f.mu.Unlock()
	return c, nil
}

func (f *fakeWebRTC) NewAnswerSession(remoteID string) (peer.TransportSession, error) {
	return f.NewSession(remoteID)
}

func (f *fakeWebRTC) conn(remoteID string) *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[remoteID]
}
