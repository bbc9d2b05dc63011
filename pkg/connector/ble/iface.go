package ble

import (
	"context"
	"io"
)

// Beacon is a peer advertisement observed during scanning.
type Beacon struct {
	Address     string
	LocalName   string
	RSSI        int16
	Connectable bool
}

// Adapter abstracts the host's BLE stack. The production implementation is
// backed by go-ble; tests substitute a fake.
type Adapter interface {
	// ScanBeacon scans until a beacon accepted by match is found or ctx ends.
	ScanBeacon(ctx context.Context, match func(Beacon) bool) (*Beacon, error)

	// Connect dials the device behind a beacon.
	Connect(ctx context.Context, beacon *Beacon) (Device, error)

	// Close shuts the adapter down. It does not tear down established
	// connections; those are closed individually.
	Close() error
}

// Device is a connected BLE peripheral.
type Device interface {
	// Service looks up a GATT service by UUID.
	Service(ctx context.Context, uuid string) (Service, error)

	// Disconnected is closed when the peripheral drops the connection.
	Disconnected() <-chan struct{}

	// Close terminates the connection. Repeated calls must be idempotent.
	Close() error
}

// Service exposes the characteristics of a GATT service.
type Service interface {
	// Rx subscribes to notifications on a characteristic.
	Rx(uuid string, callback func(buf []byte)) error

	// Tx returns a writer for a characteristic.
	Tx(uuid string) (Writer, error)
}

// Writer writes to a single characteristic.
type Writer interface {
	io.Writer
}
