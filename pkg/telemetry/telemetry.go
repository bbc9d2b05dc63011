// Package telemetry defines the telemetry sample record and the validation
// rules applied at the ingestion boundary. Validation failures are normal
// control flow, not errors: callers drop the offending sample and move on.
package telemetry

import (
	"math"
	"strconv"

	"github.com/hapticlink/watch-relay/pkg/identity"
)

// Physiological heart-rate bounds, in beats per minute.
const (
	MinHeartRate = 30
	MaxHeartRate = 250

	minRestingHeartRate = 60
	maxRestingHeartRate = 100
)

// Field keys required of every inbound frame after identifier merging.
const (
	FieldHeartRate = "heartRate"
	FieldUserID    = "userId"
	FieldWatchID   = "smartWatchId"
)

// Fields is the loosely-typed key/value payload of a raw peer frame. It is
// parsed into a Sample exactly once, at the ingestion boundary.
type Fields map[string]string

// Sample is an immutable telemetry record ready for delivery to the backend.
// Samples are discarded after being forwarded or dropped; nothing retains
// them.
type Sample struct {
	HeartRate  int     `json:"heartRate"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	UserID     string  `json:"userId"`
	WatchID    string  `json:"watchId"`
	DeviceID   string  `json:"deviceId"`
	CapturedAt int64   `json:"timestamp"` // Unix milliseconds
}

// IsValidHeartRate reports whether v is physiologically possible.
func IsValidHeartRate(v int) bool {
	return v >= MinHeartRate && v <= MaxHeartRate
}

// IsNormalRestingHeartRate reports whether v falls in the normal resting
// range. Values outside this range may still be valid (exercise, bradycardia).
func IsNormalRestingHeartRate(v int) bool {
	return v >= minRestingHeartRate && v <= maxRestingHeartRate
}

// IsValidCoordinate reports whether (lat, lon) is a usable fix. Non-finite
// components are always invalid.
func IsValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// ParseHeartRate extracts the heart-rate reading from a frame. The field must
// be present and parse as a bare base-10 integer; whitespace, fractions, and
// any other deviation yield ok=false rather than a partial value.
func ParseHeartRate(f Fields) (v int, ok bool) {
	raw, present := f[FieldHeartRate]
	if !present {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Complete reports whether the frame carries every required field with a
// usable value. Unrecognized extra fields are tolerated.
func (f Fields) Complete() bool {
	if f == nil {
		return false
	}
	checks := map[string]string{
		FieldHeartRate: "",
		FieldUserID:    identity.UnknownUser,
		FieldWatchID:   identity.UnknownWatch,
	}
	for key, sentinel := range checks {
		v, present := f[key]
		if !present || v == "" {
			return false
		}
		if sentinel != "" && v == sentinel {
			return false
		}
	}
	return true
}

// Clone returns a shallow copy of the fields, so identifier merging never
// mutates the connector-owned frame.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
