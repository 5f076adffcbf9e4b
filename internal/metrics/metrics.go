// Package metrics exposes Prometheus collectors for the dashboard backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// GatewayConnectionState tracks the state of the upstream event channel:
	// 0 disconnected, 1 connecting, 2 connected, 3 error.
	GatewayConnectionState = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "wagate",
		Subsystem: "realtime",
		Name:      "gateway_connection_state",
		Help:      "State of the upstream event channel (0=disconnected, 1=connecting, 2=connected, 3=error).",
	})

	// ReconnectAttempts counts reconnection attempts to the upstream gateway.
	ReconnectAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wagate",
		Subsystem: "realtime",
		Name:      "reconnect_attempts_total",
		Help:      "Total reconnection attempts to the upstream event channel.",
	})

	// EventsReceived counts inbound events by kind.
	EventsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wagate",
		Subsystem: "realtime",
		Name:      "events_received_total",
		Help:      "Total events received over the upstream event channel.",
	}, []string{"kind"})

	// AttachedClients tracks browser clients attached to the status stream.
	AttachedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "wagate",
		Subsystem: "stream",
		Name:      "attached_clients",
		Help:      "Browser clients currently attached to the status stream.",
	})

	// StatusEventsRecorded counts status transitions written to the history store.
	StatusEventsRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wagate",
		Subsystem: "history",
		Name:      "status_events_recorded_total",
		Help:      "Total status transitions written to the history store.",
	})
)

func init() {
	prometheus.MustRegister(
		GatewayConnectionState,
		ReconnectAttempts,
		EventsReceived,
		AttachedClients,
		StatusEventsRecorded,
	)
}
