package peer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hapticlink/watch-relay/internal/metrics"
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

func (s *recordingSink) lastState(t status.Type) (status.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Type == t {
			return s.events[i].State, true
		}
	}
	return 0, false
}

type fakePeer struct {
	alias string

	mu     sync.Mutex
	closed bool
	inbox  chan connector.Frame
	sent   []connector.Instruction
}

func newFakePeer(alias string) *fakePeer {
	return &fakePeer{alias: alias, inbox: make(chan connector.Frame, 8)}
}

func (p *fakePeer) Receive() <-chan connector.Frame { return p.inbox }

func (p *fakePeer) SendInstruction(_ context.Context, instruction connector.Instruction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("closed")
	}
	p.sent = append(p.sent, instruction)
	return nil
}

func (p *fakePeer) Alias() string { return p.alias }

func (p *fakePeer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
}

func (p *fakePeer) emit(heartRate string) {
	p.inbox <- connector.Frame{
		Fields:     telemetry.Fields{telemetry.FieldHeartRate: heartRate},
		ReceivedAt: time.Now(),
	}
}

// fakeDialer hands out queued peers, or errors once the queue is empty.
type fakeDialer struct {
	mu    sync.Mutex
	peers []*fakePeer
	fails int
}

func (d *fakeDialer) Dial(_ context.Context) (connector.Peer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.peers) == 0 {
		d.fails++
		return nil, errors.New("peer unreachable")
	}
	p := d.peers[0]
	d.peers = d.peers[1:]
	return p, nil
}

func testLink(dialer connector.PeerDialer, limit int, sink status.Sink) *Link {
	m := metrics.New(prometheus.NewRegistry())
	return New(dialer, "Android-50", limit, time.Millisecond, sink, m)
}

func TestConnectCachesIdentifiers(t *testing.T) {
	watch := newFakePeer("UserID-123-SmartWatchID-456")
	sink := &recordingSink{}
	link := testLink(&fakeDialer{peers: []*fakePeer{watch}}, 8, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- link.Run(ctx) }()

	watch.emit("72")
	select {
	case frame := <-link.Frames():
		if frame.Fields[telemetry.FieldHeartRate] != "72" {
			t.Errorf("unexpected frame: %v", frame.Fields)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
	}

	ids := link.Identifiers()
	if ids.UserID != "123" || ids.WatchID != "456" || ids.DeviceID != "50" {
		t.Errorf("unexpected identifiers: %+v", ids)
	}
	if state, ok := sink.lastState(status.TypePeerLink); !ok || state != status.StateConnected {
		t.Errorf("expected a Connected peer link status, got %v", state)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}

func TestRetryExhaustionDisconnects(t *testing.T) {
	dialer := &fakeDialer{}
	sink := &recordingSink{}
	link := testLink(dialer, 2, sink)

	err := link.Run(context.Background())
	if err == nil {
		t.Fatal("expected Run to fail after retry exhaustion")
	}
	// limit=2 allows two retries; the third consecutive failure aborts.
	if dialer.fails != 3 {
		t.Errorf("dial attempts = %d, want 3", dialer.fails)
	}
	if state, ok := sink.lastState(status.TypePeerLink); !ok || state != status.StateDisconnected {
		t.Errorf("expected a Disconnected peer link status, got %v", state)
	}
	if link.State() != status.LinkDisconnected {
		t.Errorf("link state = %v, want Disconnected", link.State())
	}

	// The frame stream is terminal.
	if _, ok := <-link.Frames(); ok {
		t.Error("expected a closed frame stream")
	}
}

func TestReconnectAfterLinkLoss(t *testing.T) {
	first := newFakePeer("UserID-1-SmartWatchID-1")
	second := newFakePeer("UserID-1-SmartWatchID-1")
	link := testLink(&fakeDialer{peers: []*fakePeer{first, second}}, 8, &recordingSink{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go link.Run(ctx)

	first.emit("70")
	<-link.Frames()

	first.Close() // link loss

	// The link redials and the stream continues on the second connection.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("link did not reconnect")
		case <-time.After(5 * time.Millisecond):
		}
		second.mu.Lock()
		closed := second.closed
		second.mu.Unlock()
		if !closed && link.State() == status.LinkConnected {
			break
		}
	}
	second.emit("75")
	select {
	case frame := <-link.Frames():
		if frame.Fields[telemetry.FieldHeartRate] != "75" {
			t.Errorf("unexpected frame after reconnect: %v", frame.Fields)
		}
	case <-time.After(time.Second):
		t.Fatal("no frame after reconnect")
	}
}

func TestSendInstructionWhileDisconnectedIsSilent(t *testing.T) {
	link := testLink(&fakeDialer{}, 0, &recordingSink{})
	// Never connected; must not panic or block.
	link.SendInstruction(context.Background(), connector.Instruction{Payload: []byte("buzz")})
}

func TestSendInstructionWhenConnected(t *testing.T) {
	watch := newFakePeer("UserID-1-SmartWatchID-2")
	link := testLink(&fakeDialer{peers: []*fakePeer{watch}}, 8, &recordingSink{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go link.Run(ctx)

	deadline := time.After(time.Second)
	for link.State() != status.LinkConnected {
		select {
		case <-deadline:
			t.Fatal("link never connected")
		case <-time.After(time.Millisecond):
		}
	}

	link.SendInstruction(context.Background(), connector.Instruction{Payload: []byte("buzz")})
	watch.mu.Lock()
	sent := len(watch.sent)
	watch.mu.Unlock()
	if sent != 1 {
		t.Errorf("instructions sent = %d, want 1", sent)
	}
}
