package client

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/notewave/notewave/internal/relay"
)

// Socket is a long-lived connection to the relay. A socket carries at most
// one active subscription at a time; events for other notes are discarded.
type Socket struct {
	ws      *websocket.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	current *Subscription

	closeOnce sync.Once
	done      chan struct{}
}

// DialSocket connects to the relay endpoint of the given server base URL.
// The base may use http(s) or ws(s) scheme.
func DialSocket(ctx context.Context, base string) (*Socket, error) {
	u := base
	switch {
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	}
	if !strings.HasSuffix(u, "/ws") {
		u = strings.TrimSuffix(u, "/") + "/ws"
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, err
	}
	s := &Socket{ws: ws, done: make(chan struct{})}
	go s.readLoop()
	return s, nil
}

// Join announces presence in a note room and returns a subscription that
// receives the room's events. Closing the subscription leaves the room and
// detaches its event stream. Joining while another subscription is active
// leaves its room first, so the old room's roster updates right away.
func (s *Socket) Join(noteID, userID, userName string) (*Subscription, error) {
	s.mu.Lock()
	prev := s.current
	s.mu.Unlock()
	if prev != nil {
		_ = prev.Leave()
	}

	sub := &Subscription{
		socket:   s,
		noteID:   noteID,
		userID:   userID,
		userName: userName,
		events:   make(chan relay.Event, 64),
		done:     make(chan struct{}),
	}
	s.mu.Lock()
	s.current = sub
	s.mu.Unlock()

	if err := s.writeJSON(relay.Event{
		Type:     relay.EventJoin,
		NoteID:   noteID,
		UserID:   userID,
		UserName: userName,
	}); err != nil {
		s.detach(sub)
		return nil, err
	}
	return sub, nil
}

func (s *Socket) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return s.ws.Close()
}

func (s *Socket) writeJSON(v interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.ws.WriteJSON(v)
}

func (s *Socket) readLoop() {
	for {
		var ev relay.Event
		if err := s.ws.ReadJSON(&ev); err != nil {
			return
		}
		s.mu.Lock()
		cur := s.current
		s.mu.Unlock()
		if cur == nil || (ev.NoteID != "" && ev.NoteID != cur.noteID) {
			continue
		}
		select {
		case cur.events <- ev:
		default:
			// slow consumer, drop
		}
	}
}

func (s *Socket) detach(sub *Subscription) {
	s.mu.Lock()
	if s.current == sub {
		s.current = nil
	}
	s.mu.Unlock()
}

// Subscription is one client's presence in a note room.
type Subscription struct {
	socket   *Socket
	noteID   string
	userID   string
	userName string

	events    chan relay.Event
	closeOnce sync.Once
	done      chan struct{}
}

// Events streams the room's relay events. The channel is never closed;
// callers should also select on Done.
func (sub *Subscription) Events() <-chan relay.Event { return sub.events }

func (sub *Subscription) Done() <-chan struct{} { return sub.done }

func (sub *Subscription) SendContent(content json.RawMessage) error {
	return sub.socket.writeJSON(relay.Event{
		Type:     relay.EventContentEdit,
		NoteID:   sub.noteID,
		UserID:   sub.userID,
		UserName: sub.userName,
		Content:  content,
	})
}

func (sub *Subscription) SendTitle(title string) error {
	return sub.socket.writeJSON(relay.Event{
		Type:     relay.EventTitleEdit,
		NoteID:   sub.noteID,
		UserID:   sub.userID,
		UserName: sub.userName,
		Title:    title,
	})
}

func (sub *Subscription) SendTyping(isTyping bool) error {
	return sub.socket.writeJSON(relay.Event{
		Type:     relay.EventTyping,
		NoteID:   sub.noteID,
		UserID:   sub.userID,
		UserName: sub.userName,
		IsTyping: isTyping,
	})
}

func (sub *Subscription) SendCursor(position json.RawMessage) error {
	return sub.socket.writeJSON(relay.Event{
		Type:     relay.EventCursor,
		NoteID:   sub.noteID,
		UserID:   sub.userID,
		UserName: sub.userName,
		Position: position,
	})
}

// Leave emits the leave event and detaches the subscription. Safe to call
// more than once.
func (sub *Subscription) Leave() error {
	var err error
	sub.closeOnce.Do(func() {
		err = sub.socket.writeJSON(relay.Event{
			Type:   relay.EventLeave,
			NoteID: sub.noteID,
			UserID: sub.userID,
		})
		sub.socket.detach(sub)
		close(sub.done)
	})
	return err
}
