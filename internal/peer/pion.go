package peer

import (
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/dodomondo0/fool-p2p-app/internal/config"
	"github.com/dodomondo0/fool-p2p-app/internal/protocol"
)

// PionTransport is the production Transport backed by pion/webrtc.
type PionTransport struct {
	cfg *config.Config
}

func NewPionTransport(cfg *config.Config) *PionTransport {
	return &PionTransport{cfg: cfg}
}

func (t *PionTransport) NewSession(remoteID string) (TransportSession, error) {
	pc, err := t.newPeerConnection()
	if err != nil {
		return nil, err
	}

	ordered := true
	dc, err := pc.CreateDataChannel("game_"+remoteID, &webrtc.DataChannelInit{
		Ordered: &ordered,
	})
	if err != nil {
		pc.Close()
		return nil, protocol.TransportError("create data channel", err)
	}

	s := newPionSession(pc)
	s.bindChannel(dc)
	return s, nil
}

func (t *PionTransport) NewAnswerSession(remoteID string) (TransportSession, error) {
	pc, err := t.newPeerConnection()
	if err != nil {
		return nil, err
	}

	s := newPionSession(pc)
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		s.bindChannel(dc)
	})
	return s, nil
}

func (t *PionTransport) newPeerConnection() (*webrtc.PeerConnection, error) {
	iceServers := []webrtc.ICEServer{{URLs: t.cfg.GetSTUNServers()}}
	if turn := t.cfg.GetTURNServers(); turn != nil {
		username, password := t.cfg.GetTURNCredentials()
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       turn,
			Username:   username,
			Credential: password,
		})
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, protocol.TransportError("create peer connection", err)
	}
	return pc, nil
}

// pionSession adapts one PeerConnection plus its data channel to the
// TransportSession interface. Callback registration races with channel
// adoption on the answering side, hence the mutex.
type pionSession struct {
	pc *webrtc.PeerConnection

	mu        sync.Mutex
	dc        *webrtc.DataChannel
	onOpen    func()
	onMessage func([]byte)
	closeOnce sync.Once
	closeErr  error
}

func newPionSession(pc *webrtc.PeerConnection) *pionSession {
	return &pionSession{pc: pc}
}

func (s *pionSession) bindChannel(dc *webrtc.DataChannel) {
	s.mu.Lock()
	s.dc = dc
	s.mu.Unlock()

	dc.OnOpen(func() {
		s.mu.Lock()
		fn := s.onOpen
		s.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		s.mu.Lock()
		fn := s.onMessage
		s.mu.Unlock()
		if fn != nil {
			fn(msg.Data)
		}
	})
}

func (s *pionSession) Offer() (webrtc.SessionDescription, error) {
	offer, err := s.pc.CreateOffer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, protocol.TransportError("create offer", err)
	}
	if err := s.pc.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, protocol.TransportError("set local description", err)
	}
	return *s.pc.LocalDescription(), nil
}

func (s *pionSession) Answer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	if err := s.pc.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, protocol.TransportError("set remote description", err)
	}
	answer, err := s.pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, protocol.TransportError("create answer", err)
	}
	if err := s.pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, protocol.TransportError("set local description", err)
	}
	return *s.pc.LocalDescription(), nil
}

func (s *pionSession) SetRemoteDescription(desc webrtc.SessionDescription) error {
	if err := s.pc.SetRemoteDescription(desc); err != nil {
		return protocol.TransportError("set remote description", err)
	}
	return nil
}

func (s *pionSession) AddRemoteCandidate(cand webrtc.ICECandidateInit) error {
	if err := s.pc.AddICECandidate(cand); err != nil {
		return protocol.TransportError("add ice candidate", err)
	}
	return nil
}

func (s *pionSession) OnStateChange(fn func(webrtc.PeerConnectionState)) {
	s.pc.OnConnectionStateChange(fn)
}

func (s *pionSession) OnCandidate(fn func(webrtc.ICECandidateInit)) {
	s.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		// nil marks the end of gathering.
		if c != nil {
			fn(c.ToJSON())
		}
	})
}

func (s *pionSession) OnOpen(fn func()) {
	s.mu.Lock()
	s.onOpen = fn
	s.mu.Unlock()
}

func (s *pionSession) OnMessage(fn func([]byte)) {
	s.mu.Lock()
	s.onMessage = fn
	s.mu.Unlock()
}

func (s *pionSession) Send(data []byte) error {
	s.mu.Lock()
	dc := s.dc
	s.mu.Unlock()
	if dc == nil {
		return protocol.NewError("send", errors.New("data channel not established"))
	}
	if err := dc.Send(data); err != nil {
		return protocol.TransportError("send", err)
	}
	return nil
}

func (s *pionSession) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		dc := s.dc
		s.mu.Unlock()
		var errs []error
		if dc != nil {
			errs = append(errs, dc.Close())
		}
		errs = append(errs, s.pc.Close())
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
