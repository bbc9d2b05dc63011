// Package identity extracts structured identifiers from peer-advertised names
// and aliases. Parsing never fails: malformed input yields sentinel values.
package identity

import "regexp"

// Sentinel values returned when an identifier cannot be parsed. Distinct from
// the empty string: "" means the field was missing, a sentinel means parsing
// failed.
const (
	UnknownDevice = "UnknownAndroid"
	UnknownUser   = "UnknownUser"
	UnknownWatch  = "UnknownWatch"
)

var (
	deviceNameRE = regexp.MustCompile(`^Android-(\d+)$`)
	watchAliasRE = regexp.MustCompile(`^UserID-(\d+)-SmartWatchID-(\d+)$`)
)

// Identifiers holds the identity triple attached to every telemetry sample.
// Parsed once at connection time and cached for the life of the connection.
type Identifiers struct {
	UserID   string
	WatchID  string
	DeviceID string
}

// Complete reports whether all three identifiers were parsed successfully.
func (id Identifiers) Complete() bool {
	return id.UserID != "" && id.UserID != UnknownUser &&
		id.WatchID != "" && id.WatchID != UnknownWatch &&
		id.DeviceID != "" && id.DeviceID != UnknownDevice
}

// ParseDeviceID extracts the numeric token from a system device name of the
// exact form "Android-<digits>". Matching is case-sensitive and does not trim
// whitespace; any deviation returns UnknownDevice.
func ParseDeviceID(name string) string {
	if m := deviceNameRE.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return UnknownDevice
}

// ParseWatchAlias extracts the user and watch IDs from a peer alias of the
// exact form "UserID-<digits>-SmartWatchID-<digits>". Any deviation returns
// the (UnknownUser, UnknownWatch) pair.
func ParseWatchAlias(alias string) (userID, watchID string) {
	if m := watchAliasRE.FindStringSubmatch(alias); m != nil {
		return m[1], m[2]
	}
	return UnknownUser, UnknownWatch
}

// FromPeer derives the full identifier set from a peer alias and the local
// system device name.
func FromPeer(alias, deviceName string) Identifiers {
	userID, watchID := ParseWatchAlias(alias)
	return Identifiers{
		UserID:   userID,
		WatchID:  watchID,
		DeviceID: ParseDeviceID(deviceName),
	}
}
