package ble

import (
	"time"

	goble "github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
	"github.com/go-ble/ble/linux/hci/cmd"

	"github.com/hapticlink/watch-relay/internal/log"
)

const bleTimeout = 20 * time.Second

// Watches advertise infrequently while conserving power, so scan windows are
// kept short and dense.
var scanParams = cmd.LESetScanParameters{
	LEScanType:           1,    // Active scanning
	LEScanInterval:       0x10, // 10ms
	LEScanWindow:         0x10, // 10ms
	OwnAddressType:       0,    // Static
	ScanningFilterPolicy: 2,    // Basic filtered
}

func newDevice(id string) (goble.Device, error) {
	if id != "" {
		log.Warning("ble: adapter selection by ID is not supported on Linux; using the default adapter")
	}
	return linux.NewDevice(
		goble.OptListenerTimeout(bleTimeout),
		goble.OptDialerTimeout(bleTimeout),
		goble.OptScanParams(scanParams),
	)
}
