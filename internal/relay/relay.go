// Package relay wires the peer link, the throttle gate, and the backend
// uplink into the telemetry pipeline, and routes backend instructions back to
// the wearable. It owns the last-known location and the host-facing control
// surface.
package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hapticlink/watch-relay/internal/metrics"
	"github.com/hapticlink/watch-relay/internal/peer"
	"github.com/hapticlink/watch-relay/internal/retry"
	"github.com/hapticlink/watch-relay/internal/throttle"
	"github.com/hapticlink/watch-relay/internal/uplink"
	"github.com/hapticlink/watch-relay/pkg/connector"
	"github.com/hapticlink/watch-relay/pkg/status"
	"github.com/hapticlink/watch-relay/pkg/telemetry"
)

// Location is a position fix from the host's location source.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Config assembles a Relay. PeerDialer and BackendDialer are required; both
// are redialed from scratch on every Start so a stopped relay never reuses a
// torn-down connection.
type Config struct {
	PeerDialer    connector.PeerDialer
	BackendDialer connector.BackendDialer

	// DeviceName is the local system identifier parsed into each sample's
	// deviceId.
	DeviceName string

	// RetryLimit and RetryDelay govern both links. Each link still holds its
	// own retry state. -1 retries forever; 0 aborts on the first failure.
	RetryLimit int
	RetryDelay time.Duration

	// ThrottleInterval is the minimum spacing between delivered samples.
	ThrottleInterval time.Duration

	// LocationSource, when set, is consumed for the life of the relay and
	// feeds UpdateLocation.
	LocationSource <-chan Location

	Sink    status.Sink
	Metrics *metrics.Metrics
}

// Relay is the orchestrator. All exported methods are safe for concurrent use
// and idempotent under repeated calls.
type Relay struct {
	cfg Config

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	link    *peer.Link
	up      *uplink.Uplink

	locMu          sync.Mutex
	location       Location
	monitoringType string
}

// New builds a stopped Relay. A zero RetryDelay or ThrottleInterval falls
// back to the default; a nil Sink logs through the process logger; nil
// Metrics register against a private registry.
func New(cfg Config) (*Relay, error) {
	if cfg.PeerDialer == nil || cfg.BackendDialer == nil {
		return nil, fmt.Errorf("relay: both dialers are required")
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = retry.DefaultDelay
	}
	if cfg.ThrottleInterval == 0 {
		cfg.ThrottleInterval = throttle.DefaultInterval
	}
	if cfg.Sink == nil {
		cfg.Sink = status.LoggerSink{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New(prometheus.NewRegistry())
	}
	return &Relay{cfg: cfg}, nil
}

// Start dials the backend and brings both links up. Calling Start on a
// running relay is a no-op.
func (r *Relay) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	backendConn, err := r.cfg.BackendDialer.Dial(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("relay: backend dial: %w", err)
	}

	up := uplink.New(backendConn, r.cfg.RetryLimit, r.cfg.RetryDelay, r.cfg.Sink, r.cfg.Metrics)
	link := peer.New(r.cfg.PeerDialer, r.cfg.DeviceName, r.cfg.RetryLimit, r.cfg.RetryDelay, r.cfg.Sink, r.cfg.Metrics)
	gate := throttle.NewGate(r.cfg.ThrottleInterval)
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		if err := link.Run(ctx); err != nil && ctx.Err() == nil {
			r.cfg.Sink.Log("relay", "peer link terminated: %s", err)
		}
	}()
	go func() {
		defer wg.Done()
		up.Listen(ctx)
	}()
	go func() {
		defer wg.Done()
		r.process(ctx, link, up, gate)
	}()
	go func() {
		defer wg.Done()
		r.forwardInstructions(ctx, link, up)
	}()
	if r.cfg.LocationSource != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.watchLocation(ctx)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.reportMonitoringType(ctx, up)
	}()
	go func() {
		wg.Wait()
		up.Close()
		close(done)
	}()

	r.cancel = cancel
	r.done = done
	r.link = link
	r.up = up
	r.running = true
	r.cfg.Sink.Log("relay", "started")
	return nil
}

// Stop cancels all pending work, releases both connections, and returns only
// after teardown completes. Stopping a stopped relay is a no-op.
func (r *Relay) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel, done := r.cancel, r.done
	r.running = false
	r.link = nil
	r.up = nil
	r.mu.Unlock()

	cancel()
	<-done
	r.cfg.Sink.Log("relay", "stopped")
}

// ForceReconnect tears both links down, waits for full teardown, and brings
// fresh connections up.
func (r *Relay) ForceReconnect() error {
	r.Stop()
	return r.Start()
}

// Running reports whether the relay is currently started.
func (r *Relay) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// UpdateLocation records a position fix for merging into subsequent samples.
// An invalid fix is logged and ignored; the previous fix stays in effect.
func (r *Relay) UpdateLocation(lat, lon float64) {
	if !telemetry.IsValidCoordinate(lat, lon) {
		r.cfg.Sink.Log("relay", "ignoring invalid location fix (%v, %v)", lat, lon)
		return
	}
	r.locMu.Lock()
	r.location = Location{Latitude: lat, Longitude: lon}
	r.locMu.Unlock()
	r.cfg.Sink.Status(status.Event{
		Type:  status.TypeLocation,
		Value: fmt.Sprintf("%.4f,%.4f", lat, lon),
		State: status.StateConnected,
	})
}

// MonitoringType returns the monitoring mode most recently reported by the
// backend, or "" when none has been fetched yet.
func (r *Relay) MonitoringType() string {
	r.locMu.Lock()
	defer r.locMu.Unlock()
	return r.monitoringType
}

func (r *Relay) lastLocation() Location {
	r.locMu.Lock()
	defer r.locMu.Unlock()
	return r.location
}

// process is the telemetry path: merge, validate, throttle, deliver, in frame
// arrival order. It exits when the frame stream ends.
func (r *Relay) process(ctx context.Context, link *peer.Link, up *uplink.Uplink, gate *throttle.Gate) {
	for frame := range link.Frames() {
		r.cfg.Metrics.FramesReceived.Inc()
		sample, ok := r.compose(link, frame)
		if !ok {
			r.cfg.Metrics.SamplesDroppedInvalid.Inc()
			continue
		}
		if !gate.Admit(sample.CapturedAt) {
			r.cfg.Metrics.SamplesThrottled.Inc()
			continue
		}
		if err := up.Deliver(ctx, sample); err != nil {
			if ctx.Err() != nil {
				return
			}
			r.cfg.Sink.Log("relay", "sample lost: %s", err)
		}
	}
}

// compose merges cached identifiers and the last-known location into the
// frame and validates the result. A false return means the frame was dropped.
func (r *Relay) compose(link *peer.Link, frame connector.Frame) (telemetry.Sample, bool) {
	fields := frame.Fields.Clone()
	ids := link.Identifiers()
	if _, present := fields[telemetry.FieldUserID]; !present {
		fields[telemetry.FieldUserID] = ids.UserID
	}
	if _, present := fields[telemetry.FieldWatchID]; !present {
		fields[telemetry.FieldWatchID] = ids.WatchID
	}

	heartRate, ok := telemetry.ParseHeartRate(fields)
	if !ok {
		r.cfg.Sink.Log("relay", "dropping frame: unparseable heart rate %q", fields[telemetry.FieldHeartRate])
		return telemetry.Sample{}, false
	}
	if !telemetry.IsValidHeartRate(heartRate) {
		r.cfg.Sink.Log("relay", "dropping frame: heart rate %d out of range", heartRate)
		return telemetry.Sample{}, false
	}
	if !fields.Complete() {
		r.cfg.Sink.Log("relay", "dropping frame: incomplete identifiers %v", fields)
		return telemetry.Sample{}, false
	}
	location := r.lastLocation()
	if !telemetry.IsValidCoordinate(location.Latitude, location.Longitude) {
		r.cfg.Sink.Log("relay", "dropping frame: invalid location (%v, %v)", location.Latitude, location.Longitude)
		return telemetry.Sample{}, false
	}

	return telemetry.Sample{
		HeartRate:  heartRate,
		Latitude:   location.Latitude,
		Longitude:  location.Longitude,
		UserID:     fields[telemetry.FieldUserID],
		WatchID:    fields[telemetry.FieldWatchID],
		DeviceID:   ids.DeviceID,
		CapturedAt: frame.ReceivedAt.UnixMilli(),
	}, true
}

// forwardInstructions is the return path: backend instructions go to the
// wearable verbatim, in arrival order, independent of the telemetry path.
func (r *Relay) forwardInstructions(ctx context.Context, link *peer.Link, up *uplink.Uplink) {
	instructions := up.Instructions()
	for {
		select {
		case <-ctx.Done():
			return
		case instruction, ok := <-instructions:
			if !ok {
				return
			}
			up.NoteReceive()
			link.SendInstruction(ctx, instruction)
		}
	}
}

func (r *Relay) watchLocation(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fix, ok := <-r.cfg.LocationSource:
			if !ok {
				return
			}
			r.UpdateLocation(fix.Latitude, fix.Longitude)
		}
	}
}

// reportMonitoringType fetches the active monitoring mode once per Start and
// publishes it on the status channel.
func (r *Relay) reportMonitoringType(ctx context.Context, up *uplink.Uplink) {
	r.cfg.Sink.Status(status.Event{Type: status.TypeMonitoringType, State: status.StatePending})
	monitoringType, err := up.FetchMonitoringType(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.cfg.Sink.Status(status.Event{Type: status.TypeMonitoringType, State: status.StateDisconnected})
		}
		return
	}
	r.locMu.Lock()
	r.monitoringType = monitoringType
	r.locMu.Unlock()
	r.cfg.Sink.Status(status.Event{
		Type:  status.TypeMonitoringType,
		Value: monitoringType,
		State: status.StateConnected,
	})
}
