// Package status defines the outbound status/log channel consumed by the host
// application. The relay and both links take a Sink at construction; the core
// never reads host state back through it.
package status

import "github.com/hapticlink/watch-relay/internal/log"

// Type identifies which status indicator an event updates.
type Type string

const (
	TypePeerLink       Type = "peerLink"
	TypeBackendLink    Type = "backendLink"
	TypeLocation       Type = "location"
	TypeMonitoringType Type = "monitoringType"
)

// State is the host-visible condition of a status indicator.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StatePending
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "Connected"
	case StatePending:
		return "Pending"
	default:
		return "Disconnected"
	}
}

// Event is a single status indicator update.
type Event struct {
	Type  Type
	Value string
	State State
}

// Sink receives status events and free-text log lines. Implementations must
// be safe for concurrent use; both links and the orchestrator publish to the
// same sink.
type Sink interface {
	Status(event Event)
	Log(tag, format string, a ...interface{})
}

// LoggerSink writes status events and log lines through the process logger.
// It is the default sink when the host does not supply one.
type LoggerSink struct{}

func (LoggerSink) Status(event Event) {
	log.Info("[status] %s=%s (%s)", event.Type, event.Value, event.State)
}

func (LoggerSink) Log(tag, format string, a ...interface{}) {
	log.Info("[%s] "+format, append([]interface{}{tag}, a...)...)
}
