package signaling

import "sync"

// Roster is the host-side ordered list of player labels. It is mutated only
// by the session's envelope handler; readers get snapshot copies.
type Roster struct {
	mu      sync.Mutex
	players []string
}

// Add appends name if absent and reports whether the roster changed.
func (r *Roster) Add(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		if p == name {
			return false
		}
	}
	r.players = append(r.players, name)
	return true
}

// Remove deletes name and reports whether the roster changed.
func (r *Roster) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.players {
		if p == name {
			r.players = append(r.players[:i], r.players[i+1:]...)
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the current player list.
func (r *Roster) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.players))
	copy(out, r.players)
	return out
}

// Len returns the current player count.
func (r *Roster) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}
