// Package metrics exposes the relay's operational counters.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the instrumentation shared by the relay pipeline.
type Metrics struct {
	FramesReceived        prometheus.Counter
	SamplesDelivered      prometheus.Counter
	SamplesDroppedInvalid prometheus.Counter
	SamplesThrottled      prometheus.Counter
	DeliveryRetries       prometheus.Counter
	DeliveryFailures      prometheus.Counter
	InstructionsForwarded prometheus.Counter
	InstructionsDropped   prometheus.Counter
	PeerReconnects        prometheus.Counter
}

// New registers the relay's collectors with reg and returns them. Passing a
// fresh registry keeps tests independent of global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_frames_received_total",
			Help: "Raw telemetry frames received from the peer.",
		}),
		SamplesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_samples_delivered_total",
			Help: "Telemetry samples successfully delivered to the backend.",
		}),
		SamplesDroppedInvalid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_samples_dropped_invalid_total",
			Help: "Samples discarded by validation.",
		}),
		SamplesThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_samples_throttled_total",
			Help: "Samples dropped by the admission gate.",
		}),
		DeliveryRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_delivery_retries_total",
			Help: "Backend delivery attempts that were retried.",
		}),
		DeliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_delivery_failures_total",
			Help: "Samples abandoned after retry exhaustion.",
		}),
		InstructionsForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_instructions_forwarded_total",
			Help: "Haptic instructions forwarded to the peer.",
		}),
		InstructionsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_instructions_dropped_total",
			Help: "Haptic instructions lost while the peer was disconnected.",
		}),
		PeerReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_peer_reconnects_total",
			Help: "Peer link reconnection attempts.",
		}),
	}
	reg.MustRegister(
		m.FramesReceived,
		m.SamplesDelivered,
		m.SamplesDroppedInvalid,
		m.SamplesThrottled,
		m.DeliveryRetries,
		m.DeliveryFailures,
		m.InstructionsForwarded,
		m.InstructionsDropped,
		m.PeerReconnects,
	)
	return m
}
