package relay

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/notewave/notewave/pkg/logger"
	"github.com/notewave/notewave/pkg/metrics"
)

// session wraps one websocket connection. Outbound events go through a
// buffered channel; when the buffer is full the event is dropped (the relay
// is at-most-once, and presence state self-heals on the next change).
type session struct {
	id   string
	hub  *Hub
	ws   *websocket.Conn
	send chan []byte

	closeOnce sync.Once
}

func (s *session) enqueue(event string, b []byte) {
	select {
	case s.send <- b:
	default:
		metrics.RelayDropped.WithLabelValues(event).Inc()
	}
}

// readPump consumes inbound frames until the connection dies, then runs the
// disconnect cleanup exactly once.
func (s *session) readPump() {
	defer s.hub.dropSession(s)

	cfg := s.hub.cfg
	s.ws.SetReadLimit(cfg.MaxMessageBytes)
	_ = s.ws.SetReadDeadline(time.Now().Add(cfg.PongWait))
	s.ws.SetPongHandler(func(string) error {
		return s.ws.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		var ev Event
		if err := s.ws.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debugf("relay: session %s read error: %v", s.id, err)
			}
			return
		}
		s.hub.dispatch(s, ev)
	}
}

// writePump owns all writes on the connection: queued events plus keepalive
// pings. Closing the send channel makes it emit a close frame and exit.
func (s *session) writePump() {
	cfg := s.hub.cfg
	ticker := time.NewTicker(cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.ws.Close()
	}()

	for {
		select {
		case b, ok := <-s.send:
			_ = s.ws.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if !ok {
				_ = s.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.ws.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := s.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.send)
	})
}
