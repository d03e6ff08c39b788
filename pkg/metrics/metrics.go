package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "notewave", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "notewave", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)

	RelayEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "notewave", Name: "relay_events_total", Help: "Relay events fanned out, by event type."},
		[]string{"event"},
	)
	RelayDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "notewave", Name: "relay_dropped_total", Help: "Relay events dropped because a session send buffer was full."},
		[]string{"event"},
	)
	RoomsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "notewave", Name: "relay_rooms_active", Help: "Rooms currently holding at least one session."},
	)
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "notewave", Name: "relay_sessions_active", Help: "Websocket sessions currently connected."},
	)

	NoteSaves = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "notewave", Name: "note_saves_total", Help: "Persisted note updates (each appends a version entry)."},
	)
	NoteRestores = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "notewave", Name: "note_restores_total", Help: "Version restores applied."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(RelayEvents)
	reg.MustRegister(RelayDropped)
	reg.MustRegister(RoomsActive)
	reg.MustRegister(SessionsActive)
	reg.MustRegister(NoteSaves)
	reg.MustRegister(NoteRestores)
}
