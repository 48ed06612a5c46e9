package model

import (
	"strings"
	"time"
)

// StateVector is one aircraft's position report as returned by a telemetry
// feed. A fresh slice is produced on every poll.
type StateVector struct {
	EntityID      string   // ICAO 24-bit transponder address (hex)
	Callsign      *string  // May be nil or padded with whitespace
	OriginCountry string   // Country inferred from the ICAO address
	Latitude      *float64 // Degrees
	Longitude     *float64 // Degrees
	Altitude      *float64 // Barometric altitude, meters
	Velocity      *float64 // Ground speed, m/s
	TrueTrack     *float64 // Degrees clockwise from north
	OnGround      bool
	PositionTime  int64 // Seconds since epoch when the position was measured
	LastContact   int64 // Seconds since epoch of the last message received
}

// HasPosition reports whether both coordinates are present.
func (s StateVector) HasPosition() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// MeasuredAt returns the position time in UTC.
func (s StateVector) MeasuredAt() time.Time {
	return time.Unix(s.PositionTime, 0).UTC()
}

// DisplayName returns the trimmed callsign, falling back to the trimmed
// entity id when the callsign is absent or blank.
func (s StateVector) DisplayName() string {
	if s.Callsign != nil {
		if cs := strings.TrimSpace(*s.Callsign); cs != "" {
			return cs
		}
	}
	return strings.TrimSpace(s.EntityID)
}
