// Package throttle implements the stateless-interval admission gate that
// limits telemetry forwarding to one sample per interval. The stream is
// real-time: a dropped sample is never queued for catch-up.
package throttle

import "time"

// DefaultInterval is the minimum spacing between admitted samples (1 Hz).
const DefaultInterval = time.Second

// Gate admits at most one sample per interval, keyed on the sample's own
// capture timestamp. Content never influences admission.
//
// Gate is not safe for concurrent use; it is owned by the orchestrator's
// sample-processing path, which is single-threaded.
type Gate struct {
	intervalMs       int64
	lastAdmittedMs   int64
	admittedAnything bool
}

// NewGate returns a Gate that always admits the first sample it sees.
func NewGate(interval time.Duration) *Gate {
	return &Gate{intervalMs: interval.Milliseconds()}
}

// Admit decides whether a sample captured at sampleTimeMs passes. The bound
// is closed: a sample arriving exactly one interval after the previous
// admission is admitted. Admission records sampleTimeMs as the new reference
// point; a drop leaves the gate unchanged.
func (g *Gate) Admit(sampleTimeMs int64) bool {
	if g.admittedAnything && sampleTimeMs-g.lastAdmittedMs < g.intervalMs {
		return false
	}
	g.lastAdmittedMs = sampleTimeMs
	g.admittedAnything = true
	return true
}

// Reset returns the gate to its initial state, so the next sample is
// admitted unconditionally. Used when the relay restarts.
func (g *Gate) Reset() {
	g.lastAdmittedMs = 0
	g.admittedAnything = false
}
