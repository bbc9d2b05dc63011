package relay_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hapticlink/watch-relay/pkg/connector"
	"github.com/hapticlink/watch-relay/pkg/status"
	"github.com/hapticlink/watch-relay/pkg/telemetry"
)

type recordingSink struct {
	mu     sync.Mutex
	events []status.Event
}

func (s *recordingSink) Status(event status.Event) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

func (s *recordingSink) Log(tag, format string, a ...interface{}) {}

func (s *recordingSink) eventsOf(t status.Type) []status.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []status.Event
	for _, event := range s.events {
		if event.Type == t {
			out = append(out, event)
		}
	}
	return out
}

type fakePeerConn struct {
	alias string

	mu     sync.Mutex
	closed bool
	inbox  chan connector.Frame
	sent   []connector.Instruction
}

func newFakePeerConn(alias string) *fakePeerConn {
	return &fakePeerConn{alias: alias, inbox: make(chan connector.Frame, connector.BufferSize)}
}

func (p *fakePeerConn) Receive() <-chan connector.Frame { return p.inbox }

func (p *fakePeerConn) SendInstruction(_ context.Context, instruction connector.Instruction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("closed")
	}
	p.sent = append(p.sent, instruction)
	return nil
}

func (p *fakePeerConn) Alias() string { return p.alias }

func (p *fakePeerConn) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
}

func (p *fakePeerConn) emit(heartRate string, atMs int64) {
	p.inbox <- connector.Frame{
		Fields:     telemetry.Fields{telemetry.FieldHeartRate: heartRate},
		ReceivedAt: time.UnixMilli(atMs),
	}
}

func (p *fakePeerConn) sentPayloads() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, instruction := range p.sent {
		out = append(out, string(instruction.Payload))
	}
	return out
}

// fakePeerDialer hands out a fresh connection per Dial, all advertising the
// same alias.
type fakePeerDialer struct {
	alias string

	mu    sync.Mutex
	conns []*fakePeerConn
}

func (d *fakePeerDialer) Dial(_ context.Context) (connector.Peer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	conn := newFakePeerConn(d.alias)
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakePeerDialer) connCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakePeerDialer) conn(i int) *fakePeerConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

type fakeBackend struct {
	monitoringType string

	mu        sync.Mutex
	failures  int // Deliver calls to reject before succeeding
	delivered []telemetry.Sample
	closed    bool
	inbox     chan connector.Instruction
}

func newFakeBackend(monitoringType string, failures int) *fakeBackend {
	return &fakeBackend{
		monitoringType: monitoringType,
		failures:       failures,
		inbox:          make(chan connector.Instruction, connector.BufferSize),
	}
}

func (b *fakeBackend) Deliver(_ context.Context, sample telemetry.Sample) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures > 0 {
		b.failures--
		return errors.New("backend unavailable")
	}
	b.delivered = append(b.delivered, sample)
	return nil
}

func (b *fakeBackend) Instructions() <-chan connector.Instruction { return b.inbox }

func (b *fakeBackend) Listen(ctx context.Context) { <-ctx.Done() }

func (b *fakeBackend) FetchMonitoringType(_ context.Context) (string, error) {
	if b.monitoringType == "" {
		return "", errors.New("backend unavailable")
	}
	return b.monitoringType, nil
}

func (b *fakeBackend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.inbox)
	}
}

func (b *fakeBackend) RetryInterval() time.Duration { return time.Millisecond }

func (b *fakeBackend) deliveredSamples() []telemetry.Sample {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]telemetry.Sample(nil), b.delivered...)
}

func (b *fakeBackend) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *fakeBackend) pushInstruction(payload string) {
	b.inbox <- connector.Instruction{Payload: []byte(payload)}
}

// fakeBackendDialer builds a fresh backend per Dial, so reconnection tests
// can tell connections apart.
type fakeBackendDialer struct {
	monitoringType string
	failures       int // initial failure budget for each new backend

	mu       sync.Mutex
	backends []*fakeBackend
}

func (d *fakeBackendDialer) Dial(_ context.Context) (connector.Backend, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	backend := newFakeBackend(d.monitoringType, d.failures)
	d.backends = append(d.backends, backend)
	return backend, nil
}

func (d *fakeBackendDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.backends)
}

func (d *fakeBackendDialer) backend(i int) *fakeBackend {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.backends[i]
}
