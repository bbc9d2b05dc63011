// Package peer owns the wearable connection lifecycle: dialing, identifier
// caching, frame pumping, and reconnection after link loss.
package peer

import (
	"context"
	"sync"
	"time"

	"github.com/hapticlink/watch-relay/internal/metrics"
	"github.com/hapticlink/watch-relay/internal/retry"
	"github.com/hapticlink/watch-relay/pkg/connector"
	"github.com/hapticlink/watch-relay/pkg/identity"
	"github.com/hapticlink/watch-relay/pkg/protocol"
	"github.com/hapticlink/watch-relay/pkg/status"
)

// Link maintains the peer connection and its inbound frame stream. One Link
// serves one Run; a relay restart builds a fresh Link.
type Link struct {
	dialer     connector.PeerDialer
	deviceName string
	retries    *retry.Controller
	retryDelay time.Duration
	sink       status.Sink
	metrics    *metrics.Metrics

	mu          sync.Mutex
	state       status.LinkState
	conn        connector.Peer
	identifiers identity.Identifiers

	frames chan connector.Frame
}

// New builds a Link. deviceName is the local system identifier parsed into
// the sample's deviceId; retryLimit and retryDelay govern reconnection.
func New(dialer connector.PeerDialer, deviceName string, retryLimit int, retryDelay time.Duration, sink status.Sink, m *metrics.Metrics) *Link {
	return &Link{
		dialer:     dialer,
		deviceName: deviceName,
		retries:    retry.NewController(retryLimit),
		retryDelay: retryDelay,
		sink:       sink,
		metrics:    m,
		frames:     make(chan connector.Frame, connector.BufferSize),
	}
}

// Frames returns the inbound telemetry stream. The channel closes when Run
// returns; the stream is not restartable.
func (l *Link) Frames() <-chan connector.Frame {
	return l.frames
}

// Identifiers returns the identifier set cached at connection time.
func (l *Link) Identifiers() identity.Identifiers {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.identifiers
}

// State returns the current link state.
func (l *Link) State() status.LinkState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Run drives the connection lifecycle until ctx is canceled or the
// reconnection budget is exhausted. Frames are pushed to Frames() in arrival
// order.
func (l *Link) Run(ctx context.Context) error {
	defer close(l.frames)
	defer l.setState(status.LinkDisconnected, "")

	for {
		l.setState(status.LinkConnecting, "")
		conn, err := l.dial(ctx)
		if err != nil {
			return err
		}

		ids := identity.FromPeer(conn.Alias(), l.deviceName)
		l.mu.Lock()
		l.conn = conn
		l.identifiers = ids
		l.mu.Unlock()
		l.retries.Success()
		l.setState(status.LinkConnected, conn.Alias())
		l.sink.Log("peer", "connected to %s (user=%s watch=%s)", conn.Alias(), ids.UserID, ids.WatchID)

		err = l.pump(ctx, conn)
		l.mu.Lock()
		l.conn = nil
		l.mu.Unlock()
		conn.Close()
		if err != nil {
			return err
		}
		l.sink.Log("peer", "link lost, reconnecting")
	}
}

// dial attempts to connect, retrying on failure until the budget is spent or
// ctx ends.
func (l *Link) dial(ctx context.Context) (connector.Peer, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		conn, err := l.dialer.Dial(ctx)
		if err == nil {
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		l.sink.Log("peer", "connection attempt failed: %s", err)
		l.metrics.PeerReconnects.Inc()
		if l.retries.Failure() == retry.Abort {
			l.sink.Log("peer", "giving up after %d attempts", l.retries.Attempts())
			return nil, protocol.ErrRetriesExhausted
		}
		select {
		case <-time.After(l.retryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// pump forwards frames until the connection's stream ends (nil) or ctx is
// canceled (ctx.Err()).
func (l *Link) pump(ctx context.Context, conn connector.Peer) error {
	for {
		select {
		case frame, ok := <-conn.Receive():
			if !ok {
				return nil
			}
			select {
			case l.frames <- frame:
			case <-ctx.Done():
				return ctx.Err()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SendInstruction forwards one instruction to the wearable. Losing an
// instruction while disconnected is acceptable: the failure is logged, never
// escalated, and nothing is queued for retry.
func (l *Link) SendInstruction(ctx context.Context, instruction connector.Instruction) {
	l.mu.Lock()
	conn := l.conn
	connected := l.state == status.LinkConnected
	l.mu.Unlock()

	if conn == nil || !connected {
		l.sink.Log("peer", "dropping instruction: not connected")
		l.metrics.InstructionsDropped.Inc()
		return
	}
	if err := conn.SendInstruction(ctx, instruction); err != nil {
		l.sink.Log("peer", "failed to send instruction: %s", err)
		l.metrics.InstructionsDropped.Inc()
		return
	}
	l.metrics.InstructionsForwarded.Inc()
}

func (l *Link) setState(s status.LinkState, value string) {
	l.mu.Lock()
	if l.state == s {
		l.mu.Unlock()
		return
	}
	l.state = s
	l.mu.Unlock()
	l.sink.Status(status.Event{Type: status.TypePeerLink, Value: value, State: s.HostState()})
}
