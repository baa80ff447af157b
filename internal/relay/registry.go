// Package relay implements the rendezvous server: the room registry and the
// envelope-forwarding switch. The relay has no notion of a call or a
// negotiation; it forwards signal payloads verbatim between room members.
package relay

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/dodomondo0/fool-p2p-app/internal/protocol"
)

// Member is the delivery endpoint for one connected device.
type Member interface {
	// ID returns the device identity announced in its join envelope.
	ID() string
	// Deliver queues an envelope for the member without blocking. It reports
	// false when the member's outbound queue is gone or full.
	Deliver(env *protocol.Envelope) bool
}

// Room is a named rendezvous scope with at most one host and an open set of
// clients. A room never exists with zero members; it is deleted instead.
type Room struct {
	Name     string
	Password string
	HostID   string
	members  []Member
}

func (r *Room) member(id string) Member {
	for _, m := range r.members {
		if m.ID() == id {
			return m
		}
	}
	return nil
}

// Registry is the shared room state. It is owned by the server process and
// injected into connection handlers; every method serializes on a single
// mutex so concurrent joins to the same room are race-free.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// Join applies a join request. Host joins create the room and fail with
// ErrRoomConflict when it already exists. Client joins require the room to
// exist and the password to match; joining the same room twice is a no-op.
func (reg *Registry) Join(m Member, room, password string, wantsHost bool) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	existing, ok := reg.rooms[room]
	if wantsHost {
		if ok {
			return protocol.ErrRoomConflict
		}
		reg.rooms[room] = &Room{
			Name:     room,
			Password: password,
			HostID:   m.ID(),
			members:  []Member{m},
		}
		return nil
	}

	if !ok {
		return protocol.ErrRoomNotFound
	}
	if existing.Password != "" && password != existing.Password {
		return protocol.ErrInvalidPassword
	}
	if existing.member(m.ID()) == nil {
		existing.members = append(existing.members, m)
	}
	return nil
}

// ForwardSignal delivers env to its target if the target is currently a
// member of env.Room. It reports whether the envelope was forwarded; callers
// log drops, the sender is never told.
func (reg *Registry) ForwardSignal(env *protocol.Envelope) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[env.Room]
	if !ok {
		return false
	}
	target := room.member(env.Target)
	if target == nil {
		return false
	}
	return target.Deliver(env)
}

// HostAvailable records the announcing host's identity on the room and
// broadcasts env to every member. It returns the number of deliveries and
// whether the room exists. The announcement is not replayed to late joiners.
func (reg *Registry) HostAvailable(roomName, hostID string, env *protocol.Envelope) (int, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[roomName]
	if !ok {
		return 0, false
	}
	room.HostID = hostID
	delivered := 0
	for _, m := range room.members {
		if m.Deliver(env) {
			delivered++
		}
	}
	return delivered, true
}

// Disconnect removes m from every room. Rooms hosted by m are deleted
// entirely: a room without a live host is unusable and must not persist.
// It returns the names of the rooms that were deleted.
func (reg *Registry) Disconnect(m Member) []string {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var deleted []string
	for name, room := range reg.rooms {
		for i, member := range room.members {
			if member == m {
				room.members = append(room.members[:i], room.members[i+1:]...)
				break
			}
		}
		if room.HostID == m.ID() || len(room.members) == 0 {
			delete(reg.rooms, name)
			deleted = append(deleted, name)
		}
	}
	return deleted
}

// RoomCount returns the number of live rooms.
func (reg *Registry) RoomCount() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

// MemberIDs returns a snapshot of the member identities of room, or nil if
// the room does not exist.
func (reg *Registry) MemberIDs(room string) []string {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, ok := reg.rooms[room]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(r.members))
	for _, m := range r.members {
		ids = append(ids, m.ID())
	}
	return ids
}

// joinedReply maps a join outcome to the envelope reported to the requester.
// Room errors travel as joined{error} payloads, never as a disconnect.
func joinedReply(room string, wantsHost bool, err error) *protocol.Envelope {
	payload := protocol.JoinedPayload{Status: protocol.StatusSuccess, Message: "Joined room successfully"}
	if wantsHost {
		payload.Message = "Room created successfully"
	}
	switch {
	case err == nil:
	case errors.Is(err, protocol.ErrRoomConflict):
		payload = protocol.JoinedPayload{Status: protocol.StatusError, Message: "Room already exists"}
	case errors.Is(err, protocol.ErrRoomNotFound):
		payload = protocol.JoinedPayload{Status: protocol.StatusError, Message: "Room not found"}
	case errors.Is(err, protocol.ErrInvalidPassword):
		payload = protocol.JoinedPayload{Status: protocol.StatusError, Message: "Invalid password"}
	case errors.Is(err, protocol.ErrInvalidRoomName):
		payload = protocol.JoinedPayload{Status: protocol.StatusError, Message: "Invalid room name"}
	default:
		slog.Warn("unexpected join error", "error", err)
		payload = protocol.JoinedPayload{Status: protocol.StatusError, Message: "Join failed"}
	}

	env, err := protocol.NewEnvelope(protocol.KindJoined, payload)
	if err != nil {
		// JoinedPayload always marshals.
		panic(err)
	}
	env.Room = room
	return env
}
