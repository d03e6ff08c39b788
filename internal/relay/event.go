package relay

import "encoding/json"

// Event types carried over the realtime channel. Everything is
// fire-and-forget, at-most-once: the relay never acknowledges or retries.
// Durability for content belongs to the debounced persistence path, not here.
const (
	// EventJoin registers the session in the note's room and triggers a
	// roster broadcast to every member, the joiner included.
	EventJoin = "join"
	// EventLeave deregisters the session; remaining members get the roster.
	EventLeave = "leave"
	// EventContentEdit carries a full content value to everyone but the sender.
	EventContentEdit = "content-edit"
	// EventTitleEdit carries the new title to everyone but the sender.
	EventTitleEdit = "title-edit"
	// EventTyping signals typing presence to everyone but the sender.
	EventTyping = "typing"
	// EventCursor carries an opaque cursor position to everyone but the sender.
	EventCursor = "cursor"
	// EventRoster is server-emitted only: the ordered room membership.
	EventRoster = "roster"
)

// Event is the single envelope exchanged on the websocket. Fields are
// populated per event type; unused fields are omitted on the wire.
type Event struct {
	Type      string          `json:"type"`
	NoteID    string          `json:"noteId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	UserName  string          `json:"userName,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	Title     string          `json:"title,omitempty"`
	IsTyping  bool            `json:"isTyping,omitempty"`
	Position  json.RawMessage `json:"position,omitempty"`
	Members   []Member        `json:"members,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// Member is one entry of a room roster, ordered by join time.
type Member struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
}
