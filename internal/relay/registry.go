package relay

import (
	"sort"
	"sync"

	"github.com/notewave/notewave/pkg/metrics"
)

// Registry is the process-wide room state: which sessions have which note
// open right now. It is rebuilt from nothing on restart; clients rejoin on
// reconnect. A single mutex serializes membership mutation with roster
// snapshots, so every broadcast carries a roster that existed at some
// instant, never an interleaved partial view.
type Registry struct {
	mu       sync.Mutex
	rooms    map[string]map[string]*entry // noteID -> sessionID -> entry
	sessions map[string]string            // sessionID -> noteID it belongs to
	seq      uint64
}

type entry struct {
	member Member
	order  uint64 // join order within the room
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[string]map[string]*entry),
		sessions: make(map[string]string),
	}
}

// Join adds the session to the note's room, creating the room if absent, and
// returns the resulting roster. A session belongs to at most one room: joining
// while a member elsewhere implicitly leaves the old room first.
func (r *Registry) Join(noteID, sessionID, userID, userName string) []Member {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.sessions[sessionID]; ok && prev != noteID {
		r.removeLocked(prev, sessionID)
	}

	room := r.rooms[noteID]
	if room == nil {
		room = make(map[string]*entry)
		r.rooms[noteID] = room
		metrics.RoomsActive.Inc()
	}
	r.seq++
	room[sessionID] = &entry{
		member: Member{SessionID: sessionID, UserID: userID, UserName: userName},
		order:  r.seq,
	}
	r.sessions[sessionID] = noteID
	return rosterLocked(room)
}

// Leave removes the session from the note's room. It returns the remaining
// roster and whether the room still exists (a room is deleted the instant it
// becomes empty).
func (r *Registry) Leave(noteID, sessionID string) ([]Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[sessionID] != noteID {
		room, ok := r.rooms[noteID]
		if !ok {
			return nil, false
		}
		return rosterLocked(room), true
	}
	r.removeLocked(noteID, sessionID)
	room, ok := r.rooms[noteID]
	if !ok {
		return nil, false
	}
	return rosterLocked(room), true
}

// Disconnect is the backstop for ungraceful termination: it removes the
// session from whichever room it belonged to. Idempotent and safe to call
// for sessions that never joined anything.
func (r *Registry) Disconnect(sessionID string) (noteID string, roster []Member, wasMember bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	noteID, ok := r.sessions[sessionID]
	if !ok {
		return "", nil, false
	}
	r.removeLocked(noteID, sessionID)
	if room, ok := r.rooms[noteID]; ok {
		return noteID, rosterLocked(room), true
	}
	return noteID, nil, true
}

// Roster returns a read-only membership snapshot ordered by join time.
func (r *Registry) Roster(noteID string) []Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[noteID]
	if !ok {
		return nil
	}
	return rosterLocked(room)
}

// Rooms reports how many rooms currently hold at least one member.
func (r *Registry) Rooms() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

func (r *Registry) removeLocked(noteID, sessionID string) {
	delete(r.sessions, sessionID)
	room, ok := r.rooms[noteID]
	if !ok {
		return
	}
	if _, ok := room[sessionID]; !ok {
		return
	}
	delete(room, sessionID)
	if len(room) == 0 {
		delete(r.rooms, noteID)
		metrics.RoomsActive.Dec()
	}
}

func rosterLocked(room map[string]*entry) []Member {
	entries := make([]*entry, 0, len(room))
	for _, e := range room {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].order < entries[j].order })
	out := make([]Member, len(entries))
	for i, e := range entries {
		out[i] = e.member
	}
	return out
}
