// Package ble implements the wearable peer transport over Bluetooth Low
// Energy. Inbound telemetry arrives as Heart Rate Measurement notifications;
// outbound haptic instructions are written to the Immediate Alert service.
package ble

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hapticlink/watch-relay/internal/log"
	"github.com/hapticlink/watch-relay/pkg/connector"
	"github.com/hapticlink/watch-relay/pkg/protocol"
	"github.com/hapticlink/watch-relay/pkg/telemetry"
)

// Standard GATT identifiers (Bluetooth SIG assigned numbers).
const (
	heartRateServiceUUID      = "180d"
	heartRateMeasurementUUID  = "2a37"
	immediateAlertServiceUUID = "1802"
	alertLevelUUID            = "2a06"
)

// aliasPrefix selects watch beacons when no explicit local name is
// configured. Watches advertise their pairing alias as the local name.
const aliasPrefix = "UserID-"

var errNotConnectable = protocol.NewError("ble: peer is not accepting connections", false, true)

// Dialer scans for and connects to the wearable. It implements
// connector.PeerDialer; the peer link calls Dial on every (re)connection
// attempt.
type Dialer struct {
	adapter     Adapter
	localName   string
	scanTimeout time.Duration
}

// NewDialer returns a Dialer that matches beacons by exact local name, or by
// the watch alias prefix when localName is empty.
func NewDialer(adapter Adapter, localName string, scanTimeout time.Duration) *Dialer {
	return &Dialer{adapter: adapter, localName: localName, scanTimeout: scanTimeout}
}

func (d *Dialer) match(b Beacon) bool {
	if d.localName != "" {
		return b.LocalName == d.localName
	}
	return strings.HasPrefix(b.LocalName, aliasPrefix)
}

// Dial scans for the watch and establishes a Connection.
func (d *Dialer) Dial(ctx context.Context) (connector.Peer, error) {
	scanCtx := ctx
	if d.scanTimeout > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, d.scanTimeout)
		defer cancel()
	}

	beacon, err := d.adapter.ScanBeacon(scanCtx, d.match)
	if err != nil {
		return nil, &protocol.CommandError{Err: fmt.Errorf("ble: scan failed: %w", err), PossibleTemporary: true}
	}
	if !beacon.Connectable {
		return nil, errNotConnectable
	}

	device, err := d.adapter.Connect(ctx, beacon)
	if err != nil {
		return nil, &protocol.CommandError{Err: fmt.Errorf("ble: connect to %s failed: %w", beacon.Address, err), PossibleTemporary: true}
	}

	conn := &Connection{
		alias:  beacon.LocalName,
		device: device,
		inbox:  make(chan connector.Frame, connector.BufferSize),
	}

	hrService, err := device.Service(ctx, heartRateServiceUUID)
	if err != nil {
		device.Close()
		return nil, &protocol.CommandError{Err: fmt.Errorf("ble: heart rate service: %w", err), PossibleTemporary: true}
	}
	if err := hrService.Rx(heartRateMeasurementUUID, conn.rx); err != nil {
		device.Close()
		return nil, &protocol.CommandError{Err: fmt.Errorf("ble: subscribe to measurements: %w", err), PossibleTemporary: true}
	}

	// The alert service is optional on the peer; without it, instructions are
	// dropped with a log entry instead of failing the connection.
	if alertService, err := device.Service(ctx, immediateAlertServiceUUID); err == nil {
		conn.alert, err = alertService.Tx(alertLevelUUID)
		if err != nil {
			log.Warning("ble: alert level characteristic unavailable: %s", err)
		}
	} else {
		log.Warning("ble: peer does not expose the immediate alert service: %s", err)
	}

	go func() {
		<-device.Disconnected()
		conn.shutdown()
	}()

	log.Info("ble: connected to %s (%s)", beacon.LocalName, beacon.Address)
	return conn, nil
}

// Connection is an established watch link. It implements connector.Peer.
type Connection struct {
	alias  string
	device Device
	alert  Writer

	mu     sync.Mutex
	closed bool
	inbox  chan connector.Frame
}

func (c *Connection) Receive() <-chan connector.Frame {
	return c.inbox
}

func (c *Connection) Alias() string {
	return c.alias
}

// SendInstruction writes one opaque instruction payload to the alert level
// characteristic.
func (c *Connection) SendInstruction(ctx context.Context, instruction connector.Instruction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	closed, alert := c.closed, c.alert
	c.mu.Unlock()
	if closed {
		return protocol.ErrNotConnected
	}
	if alert == nil {
		return protocol.NewError("ble: peer has no alert characteristic", false, false)
	}
	n, err := alert.Write(instruction.Payload)
	if err != nil {
		return &protocol.CommandError{Err: err, PossibleSuccess: true, PossibleTemporary: true}
	}
	if n != len(instruction.Payload) {
		return fmt.Errorf("ble: short instruction write: %d of %d bytes", n, len(instruction.Payload))
	}
	return nil
}

// Close releases the connection and ends the frame stream.
func (c *Connection) Close() {
	if err := c.device.Close(); err != nil {
		log.Warning("ble: failed to close device: %s", err)
	}
	c.shutdown()
}

func (c *Connection) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.inbox)
	}
}

// rx handles one Heart Rate Measurement notification. Malformed buffers are
// dropped with a log entry; when the inbox is full the new frame is dropped.
func (c *Connection) rx(buf []byte) {
	rate, ok := parseHeartRateMeasurement(buf)
	if !ok {
		log.Debug("ble: discarding malformed measurement: %02x", buf)
		return
	}
	frame := connector.Frame{
		Fields:     telemetry.Fields{telemetry.FieldHeartRate: strconv.Itoa(rate)},
		ReceivedAt: time.Now(),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.inbox <- frame:
	default:
		log.Warning("ble: inbox full, dropping frame")
	}
}

// parseHeartRateMeasurement decodes a GATT Heart Rate Measurement value. The
// first byte is a flags field; bit 0 selects an 8- or 16-bit reading.
func parseHeartRateMeasurement(buf []byte) (int, bool) {
	if len(buf) < 2 {
		return 0, false
	}
	flags := buf[0]
	if flags&0x01 == 0 {
		return int(buf[1]), true
	}
	if len(buf) < 3 {
		return 0, false
	}
	return int(binary.LittleEndian.Uint16(buf[1:3])), true
}
