package ble

import (
	goble "github.com/go-ble/ble"
	"github.com/go-ble/ble/darwin"

	"github.com/hapticlink/watch-relay/internal/log"
)

func newDevice(id string) (goble.Device, error) {
	if id != "" {
		log.Warning("ble: Darwin does not support specifying a Bluetooth adapter ID")
	}
	return darwin.NewDevice()
}
