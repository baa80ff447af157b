// Package lobby wires the signaling session and the peer transport together
// into the two roles a device can play: the Host, which owns a room and
// negotiates a connection per joining client, and the Client, which discovers
// the host and answers its offer.
package lobby

import (
	"context"
	"log/slog"
	"time"

	"github.com/dodomondo0/fool-p2p-app/internal/protocol"
	"github.com/dodomondo0/fool-p2p-app/internal/signaling"
)

// controlSession is the slice of the signaling session the lobby drives.
// *signaling.Session satisfies it; tests substitute an in-memory fake so
// negotiation flows run without a relay.
type controlSession interface {
	ID() string
	Connect(ctx context.Context) error
	Close()
	JoinRoom(room, password string, asHost bool) error
	SendSignal(target, signalType string, data any) error
	Roster() []string
	OnJoined(fn func(signaling.JoinResult))
	OnHostFound(fn func(hostID string))
	OnSignal(fn func(*protocol.Envelope))
	OnRosterChange(fn func([]string))
	OnDisconnect(fn func())
}

// retryInterval is the fixed pause between relay connection attempts.
const retryInterval = 2 * time.Second

// runSession keeps s connected to the relay until ctx is cancelled. Connect
// failures and dropped connections are retried on a fixed interval without
// bound; the relay being down is never fatal to the lobby.
func runSession(ctx context.Context, s controlSession, lost <-chan struct{}) error {
	for {
		if err := s.Connect(ctx); err != nil {
			slog.Warn("relay connect failed, retrying", "error", err)
			if err := sleep(ctx, retryInterval); err != nil {
				return err
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-lost:
			slog.Info("relay connection lost, reconnecting")
			if err := sleep(ctx, retryInterval); err != nil {
				return err
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// inlineDispatch substitutes an inline runner when the caller passed no
// dispatch function.
func inlineDispatch(dispatch func(func())) func(func()) {
	if dispatch == nil {
		return func(f func()) { f() }
	}
	return dispatch
}

// notify signals ch without blocking; ch must be buffered.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
