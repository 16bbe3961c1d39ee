package signaling

import "sync"

// Registry owns the mapping of room ID to the ordered set of participant
// IDs in that room. Order is join order. A participant belongs to at most
// one room at a time; Join enforces this by moving them.
//
// The hub's event loop already serializes access, but the registry carries
// its own lock so it stays safe when injected elsewhere (tests, future
// handlers running off the loop).
type Registry struct {
	mu    sync.Mutex
	rooms map[string][]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string][]string)}
}

// Join adds the participant to the room and returns the membership as it
// existed before the join, excluding the joiner. Re-joining the same room is
// idempotent. Joining while a member elsewhere moves the participant; the
// rooms vacated by the move are returned so their members can be notified.
func (r *Registry) Join(roomID, participantID string) (snapshot, vacated []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id := range r.rooms {
		if id != roomID && r.removeLocked(id, participantID) {
			vacated = append(vacated, id)
		}
	}

	members := r.rooms[roomID]
	snapshot = make([]string, 0, len(members))
	present := false
	for _, m := range members {
		if m == participantID {
			present = true
			continue
		}
		snapshot = append(snapshot, m)
	}
	if !present {
		r.rooms[roomID] = append(members, participantID)
	}
	return snapshot, vacated
}

// Leave removes the participant from the named room. Returns false if they
// were not a member. Empty rooms are deleted.
func (r *Registry) Leave(roomID, participantID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(roomID, participantID)
}

// DisconnectAll removes the participant from every room they belong to and
// returns the IDs of the rooms they were removed from. All rooms are
// checked; the scan never stops at the first match.
func (r *Registry) DisconnectAll(participantID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var left []string
	for roomID := range r.rooms {
		if r.removeLocked(roomID, participantID) {
			left = append(left, roomID)
		}
	}
	return left
}

// Members returns a copy of the room's membership in join order.
func (r *Registry) Members(roomID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[roomID]
	out := make([]string, len(members))
	copy(out, members)
	return out
}

func (r *Registry) removeLocked(roomID, participantID string) bool {
	members, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	for i, m := range members {
		if m == participantID {
			r.rooms[roomID] = append(members[:i], members[i+1:]...)
			if len(r.rooms[roomID]) == 0 {
				delete(r.rooms, roomID)
			}
			return true
		}
	}
	return false
}
