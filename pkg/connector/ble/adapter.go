package ble

import (
	"context"
	"errors"
	"fmt"

	goble "github.com/go-ble/ble"

	"github.com/hapticlink/watch-relay/internal/log"
)

// NewAdapter opens the host's BLE stack. The id selects a specific adapter on
// platforms that support more than one.
func NewAdapter(id string) (Adapter, error) {
	device, err := newDevice(id)
	if err != nil {
		return nil, fmt.Errorf("ble: failed to enable adapter: %w", err)
	}
	return &nativeAdapter{device: device}, nil
}

type nativeAdapter struct {
	device goble.Device
}

func (a *nativeAdapter) ScanBeacon(ctx context.Context, match func(Beacon) bool) (*Beacon, error) {
	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	found := make(chan Beacon, 1)
	fn := func(adv goble.Advertisement) {
		beacon := advertisementToBeacon(adv)
		if !match(beacon) {
			return
		}
		select {
		case found <- beacon:
			cancel() // Unblocks device.Scan.
		case <-scanCtx.Done():
			// Another goroutine already reported a match.
		}
	}

	// Scan always returns an error once its context ends; the cancellation we
	// triggered ourselves is the success path.
	if err := a.device.Scan(scanCtx, false, fn); err != nil && !errors.Is(err, context.Canceled) {
		return nil, err
	}

	select {
	case beacon := <-found:
		return &beacon, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *nativeAdapter) Connect(ctx context.Context, beacon *Beacon) (Device, error) {
	log.Debug("ble: dialing %s (%s)", beacon.Address, beacon.LocalName)
	client, err := a.device.Dial(ctx, goble.NewAddr(beacon.Address))
	if err != nil {
		return nil, err
	}
	return &nativeDevice{client: client}, nil
}

func (a *nativeAdapter) Close() error {
	if a.device == nil {
		return nil
	}
	device := a.device
	a.device = nil
	return device.Stop()
}

type nativeDevice struct {
	client goble.Client
}

func (d *nativeDevice) Service(_ context.Context, uuid string) (Service, error) {
	services, err := d.client.DiscoverServices([]goble.UUID{goble.MustParse(uuid)})
	if err != nil {
		return nil, fmt.Errorf("ble: failed to enumerate device services: %w", err)
	}
	if len(services) == 0 {
		return nil, fmt.Errorf("ble: service %s not found", uuid)
	}
	return &nativeService{client: d.client, service: services[0]}, nil
}

func (d *nativeDevice) Disconnected() <-chan struct{} {
	return d.client.Disconnected()
}

func (d *nativeDevice) Close() error {
	err1 := d.client.ClearSubscriptions()
	err2 := d.client.CancelConnection()
	return errors.Join(err1, err2)
}

type nativeService struct {
	client  goble.Client
	service *goble.Service
}

func (s *nativeService) Rx(uuid string, callback func(buf []byte)) error {
	characteristic, err := s.discover(uuid)
	if err != nil {
		return err
	}
	if err := s.client.Subscribe(characteristic, false, callback); err != nil {
		return fmt.Errorf("ble: failed to subscribe to %s: %w", uuid, err)
	}
	return nil
}

func (s *nativeService) Tx(uuid string) (Writer, error) {
	characteristic, err := s.discover(uuid)
	if err != nil {
		return nil, err
	}
	return &nativeWriter{client: s.client, characteristic: characteristic}, nil
}

func (s *nativeService) discover(uuidStr string) (*goble.Characteristic, error) {
	uuid := goble.MustParse(uuidStr)
	characteristics, err := s.client.DiscoverCharacteristics([]goble.UUID{uuid}, s.service)
	if err != nil {
		return nil, fmt.Errorf("ble: failed to discover characteristics: %w", err)
	}

	for _, characteristic := range characteristics {
		if characteristic.UUID.Equal(uuid) {
			if _, err := s.client.DiscoverDescriptors(nil, characteristic); err != nil {
				return nil, fmt.Errorf("ble: couldn't fetch descriptors: %w", err)
			}
			return characteristic, nil
		}
	}
	return nil, fmt.Errorf("ble: characteristic %s not found", uuidStr)
}

type nativeWriter struct {
	client         goble.Client
	characteristic *goble.Characteristic
}

func (w *nativeWriter) Write(p []byte) (int, error) {
	if err := w.client.WriteCharacteristic(w.characteristic, p, true); err != nil {
		return 0, err
	}
	return len(p), nil
}

func advertisementToBeacon(a goble.Advertisement) Beacon {
	return Beacon{
		Address:     a.Addr().String(),
		LocalName:   a.LocalName(),
		RSSI:        int16(a.RSSI()),
		Connectable: a.Connectable(),
	}
}
