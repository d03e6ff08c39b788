package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/xid"

	"github.com/notewave/notewave/internal/config"
	"github.com/notewave/notewave/pkg/logger"
	"github.com/notewave/notewave/pkg/metrics"
)

// Hub accepts websocket sessions and fans events out between all sessions in
// the same room. Membership is owned by the Registry; the hub only maps
// session ids to live connections. An optional Bus extends fan-out across
// instances.
type Hub struct {
	cfg        config.RelayConfig
	registry   *Registry
	bus        *Bus
	instanceID string
	upgrader   websocket.Upgrader

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewHub builds a hub; bus may be nil for single-instance deployments.
func NewHub(cfg config.RelayConfig, bus *Bus) *Hub {
	return &Hub{
		cfg:        cfg,
		registry:   NewRegistry(),
		bus:        bus,
		instanceID: xid.New().String(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// CORS policy lives at the HTTP layer; accept any origin here.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sessions: make(map[string]*session),
	}
}

// Registry exposes the room registry for readiness checks and tests.
func (h *Hub) Registry() *Registry { return h.registry }

// Run subscribes to the cross-instance bus until ctx is done. No-op without
// a bus.
func (h *Hub) Run(ctx context.Context) {
	if h.bus == nil {
		return
	}
	h.bus.Subscribe(ctx, func(m BusMessage) {
		if m.Origin == h.instanceID {
			// our own publish; local members were already served
			return
		}
		h.broadcast(m.Event.NoteID, m.Event, "")
	})
}

// HandleWS upgrades the request and runs the session pumps.
func (h *Hub) HandleWS(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("relay: upgrade failed: %v", err)
		return
	}
	s := &session{
		id:   xid.New().String(),
		hub:  h,
		ws:   ws,
		send: make(chan []byte, h.cfg.SendBuffer),
	}
	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
	metrics.SessionsActive.Inc()
	logger.Debugf("relay: session %s connected", s.id)

	go s.writePump()
	s.readPump()
}

// dispatch routes one inbound event. Join/leave mutate membership and emit
// rosters; edit and presence events are relayed to the room minus the sender.
func (h *Hub) dispatch(s *session, ev Event) {
	if ev.NoteID == "" {
		return
	}
	switch ev.Type {
	case EventJoin:
		roster := h.registry.Join(ev.NoteID, s.id, ev.UserID, ev.UserName)
		h.broadcastRoster(ev.NoteID, roster)
		logger.Infof("relay: %s joined note %s (%d in room)", ev.UserName, ev.NoteID, len(roster))

	case EventLeave:
		roster, alive := h.registry.Leave(ev.NoteID, s.id)
		if alive {
			h.broadcastRoster(ev.NoteID, roster)
		}

	case EventContentEdit, EventTitleEdit, EventTyping, EventCursor:
		if ev.Type == EventContentEdit {
			ev.Timestamp = time.Now().UnixMilli()
		}
		h.broadcast(ev.NoteID, ev, s.id)
		if h.bus != nil {
			if err := h.bus.Publish(context.Background(), BusMessage{Origin: h.instanceID, Event: ev}); err != nil {
				logger.Warnf("relay: bus publish failed: %v", err)
			}
		}

	default:
		logger.Debugf("relay: ignoring unknown event %q from %s", ev.Type, s.id)
	}
}

// dropSession is the disconnect backstop: cleanup must never fail observably.
func (h *Hub) dropSession(s *session) {
	h.mu.Lock()
	if _, ok := h.sessions[s.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, s.id)
	h.mu.Unlock()

	noteID, roster, wasMember := h.registry.Disconnect(s.id)
	if wasMember && len(roster) > 0 {
		h.broadcastRoster(noteID, roster)
	}
	s.close()
	metrics.SessionsActive.Dec()
	logger.Debugf("relay: session %s disconnected", s.id)
}

func (h *Hub) broadcastRoster(noteID string, roster []Member) {
	h.broadcast(noteID, Event{Type: EventRoster, NoteID: noteID, Members: roster}, "")
}

// broadcast sends the event to every room member except exceptSession (""
// means everyone). Delivery is non-blocking; slow consumers lose events.
func (h *Hub) broadcast(noteID string, ev Event, exceptSession string) {
	members := h.registry.Roster(noteID)
	if len(members) == 0 {
		return
	}
	b, err := json.Marshal(ev)
	if err != nil {
		logger.Errorf("relay: marshal %s event: %v", ev.Type, err)
		return
	}
	metrics.RelayEvents.WithLabelValues(ev.Type).Inc()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, m := range members {
		if m.SessionID == exceptSession {
			continue
		}
		if s, ok := h.sessions[m.SessionID]; ok {
			s.enqueue(ev.Type, b)
		}
	}
}
