// Package connector defines the transport abstractions the relay is built
// on: a short-range link to the wearable peer and an HTTP-style link to the
// remote backend. Implementations live in the ble and inet subpackages.
package connector

import (
	"context"
	"time"

	"github.com/hapticlink/watch-relay/pkg/telemetry"
)

// BufferSize is the number of inbound frames or instructions that can be
// queued per connection before the transport applies backpressure.
const BufferSize = 16

// Frame is one raw telemetry reading received from the peer. Fields carries
// the loosely-typed payload; parsing and validation happen downstream at the
// ingestion boundary.
type Frame struct {
	Fields     telemetry.Fields
	ReceivedAt time.Time
}

// Instruction is an opaque haptic payload relayed from the backend to the
// wearable. The relay never inspects or transforms it.
type Instruction struct {
	Payload []byte
}

// Peer is an established connection to the wearable.
type Peer interface {
	// Receive returns the inbound frame stream. The channel is closed when
	// the link is lost; a Peer is not restartable after that.
	//
	// Implementations must be thread safe.
	Receive() <-chan Frame

	// SendInstruction writes one instruction frame to the wearable.
	//
	// Implementations must be thread safe.
	SendInstruction(ctx context.Context, instruction Instruction) error

	// Alias returns the peer-advertised alias observed at connection time.
	Alias() string

	// Close releases the connection. Repeated calls must be idempotent.
	Close()
}

// PeerDialer establishes Peer connections. The peer link calls Dial for the
// initial connection and again on every reconnection attempt.
type PeerDialer interface {
	Dial(ctx context.Context) (Peer, error)
}

// Backend is an established link to the remote endpoint.
type Backend interface {
	// Deliver sends one serialized telemetry sample. Errors may implement
	// protocol.Error; Temporary() failures are candidates for retry.
	Deliver(ctx context.Context, sample telemetry.Sample) error

	// Instructions returns the inbound instruction stream. The stream is
	// independent of the delivery path; neither blocks the other.
	Instructions() <-chan Instruction

	// Listen runs the inbound instruction loop until ctx is canceled.
	Listen(ctx context.Context)

	// FetchMonitoringType asks the backend which monitoring mode is active.
	FetchMonitoringType(ctx context.Context) (string, error)

	// Close releases the link. Repeated calls must be idempotent.
	Close()

	// RetryInterval is the transport-recommended wait after an inbound poll
	// failure.
	RetryInterval() time.Duration
}

// BackendDialer creates fresh Backend links, so a stop/restart sequence never
// reuses a torn-down connection.
type BackendDialer interface {
	Dial(ctx context.Context) (Backend, error)
}
