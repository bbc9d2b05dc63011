// Package uplink owns delivery of admitted telemetry samples to the backend
// and the inbound instruction stream, with per-sample retry semantics.
package uplink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hapticlink/watch-relay/internal/metrics"
	"github.com/hapticlink/watch-relay/internal/retry"
	"github.com/hapticlink/watch-relay/pkg/connector"
	"github.com/hapticlink/watch-relay/pkg/protocol"
	"github.com/hapticlink/watch-relay/pkg/status"
	"github.com/hapticlink/watch-relay/pkg/telemetry"
)

// Uplink wraps a backend connection with the retry state machine. The
// delivery path and the instruction stream are independent directions.
type Uplink struct {
	conn       connector.Backend
	retries    *retry.Controller
	retryLimit int
	retryDelay time.Duration
	sink       status.Sink
	metrics    *metrics.Metrics

	mu    sync.Mutex
	state status.LinkState
}

// New wraps conn. The delivery retry controller is the uplink's own; it is
// never shared with the peer link.
func New(conn connector.Backend, retryLimit int, retryDelay time.Duration, sink status.Sink, m *metrics.Metrics) *Uplink {
	return &Uplink{
		conn:       conn,
		retries:    retry.NewController(retryLimit),
		retryLimit: retryLimit,
		retryDelay: retryDelay,
		sink:       sink,
		metrics:    m,
	}
}

// State returns the current backend link state.
func (u *Uplink) State() status.LinkState {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// Instructions returns the inbound instruction stream.
func (u *Uplink) Instructions() <-chan connector.Instruction {
	return u.conn.Instructions()
}

// Listen runs the inbound instruction loop until ctx is canceled.
func (u *Uplink) Listen(ctx context.Context) {
	u.conn.Listen(ctx)
}

// Close releases the backend connection. Idempotent.
func (u *Uplink) Close() {
	u.conn.Close()
}

// NoteReceive records evidence of backend connectivity from the inbound
// direction.
func (u *Uplink) NoteReceive() {
	u.setState(status.LinkConnected)
}

// Deliver sends one sample, re-sending the same sample after the fixed delay
// for as long as the retry budget allows. On abort the sample is dropped and
// a terminal error returned; the budget is restored only by a later
// successful delivery.
func (u *Uplink) Deliver(ctx context.Context, sample telemetry.Sample) error {
	for {
		err := u.conn.Deliver(ctx, sample)
		if err == nil {
			u.retries.Success()
			u.setState(status.LinkConnected)
			u.metrics.SamplesDelivered.Inc()
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		u.sink.Log("backend", "delivery failed: %s", err)
		if u.retries.Failure() == retry.Abort {
			u.setState(status.LinkDisconnected)
			u.metrics.DeliveryFailures.Inc()
			return fmt.Errorf("uplink: dropping sample: %w", protocol.ErrRetriesExhausted)
		}
		u.setState(status.LinkConnecting)
		u.metrics.DeliveryRetries.Inc()
		select {
		case <-time.After(u.retryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// FetchMonitoringType asks the backend for the active monitoring mode, with
// the same retry semantics as delivery, against its own retry budget.
func (u *Uplink) FetchMonitoringType(ctx context.Context) (string, error) {
	retries := retry.NewController(u.retryLimit)
	for {
		monitoringType, err := u.conn.FetchMonitoringType(ctx)
		if err == nil {
			u.setState(status.LinkConnected)
			return monitoringType, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		u.sink.Log("backend", "monitoring type fetch failed: %s", err)
		if retries.Failure() == retry.Abort {
			u.setState(status.LinkDisconnected)
			return "", fmt.Errorf("uplink: monitoring type unavailable: %w", protocol.ErrRetriesExhausted)
		}
		u.setState(status.LinkConnecting)
		select {
		case <-time.After(u.retryDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (u *Uplink) setState(s status.LinkState) {
	u.mu.Lock()
	if u.state == s {
		u.mu.Unlock()
		return
	}
	u.state = s
	u.mu.Unlock()
	u.sink.Status(status.Event{Type: status.TypeBackendLink, State: s.HostState()})
}
