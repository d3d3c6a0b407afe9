// Package metrics holds the Prometheus collectors for rooms and signaling.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "mocamp"

// Metrics groups every collector the server exports.
type Metrics struct {
	Rooms           prometheus.Gauge
	Participants    prometheus.Gauge
	Messages        *prometheus.CounterVec
	Errors          *prometheus.CounterVec
	EngineFailures  *prometheus.CounterVec
	RoomTransitions *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "signaling",
			Name:      "rooms",
			Help:      "Live signaling rooms on this instance.",
		}),
		Participants: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "signaling",
			Name:      "participants",
			Help:      "Participants joined to signaling rooms on this instance.",
		}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signaling",
			Name:      "messages_total",
			Help:      "Inbound signaling messages by type.",
		}, []string{"type"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signaling",
			Name:      "errors_total",
			Help:      "Signaling errors reported to clients by code.",
		}, []string{"code"}),
		EngineFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "media",
			Name:      "engine_failures_total",
			Help:      "Media engine failures by operation.",
		}, []string{"op"}),
		RoomTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "room",
			Name:      "transitions_total",
			Help:      "Durable room state transitions by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.Rooms, m.Participants, m.Messages, m.Errors, m.EngineFailures, m.RoomTransitions)
	return m
}

// NewNop returns collectors registered nowhere, for tests and tools.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
