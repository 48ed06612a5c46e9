package cot

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rickgao/opensky2cot/internal/model"
)

// Reasons a state vector is skipped instead of mapped.
var (
	ErrMissingEntity   = errors.New("missing entity id")
	ErrMissingPosition = errors.New("missing position")
	ErrInvalidPosition = errors.New("invalid position")
)

// SkipError reports why a state vector produced no event.
type SkipError struct {
	EntityID string
	Reason   string // Metric label: missing_entity, missing_position, invalid_position
	Err      error
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("skip state vector %q: %v", e.EntityID, e.Err)
}

func (e *SkipError) Unwrap() error {
	return e.Err
}

func skip(entityID, reason string, err error) error {
	return &SkipError{EntityID: entityID, Reason: reason, Err: err}
}

// Mapper converts state vectors into CoT events.
type Mapper struct {
	// Source prefixes every uid ("opensky" yields "opensky-<icao24>").
	Source string

	// StaleAfter is added to the position time to form the stale time.
	StaleAfter time.Duration
}

// NewMapper creates a Mapper.
func NewMapper(source string, staleAfter time.Duration) Mapper {
	return Mapper{Source: source, StaleAfter: staleAfter}
}

// UID returns the stable marker uid for an entity.
func (m Mapper) UID(entityID string) string {
	return m.Source + "-" + entityID
}

// Map builds the CoT event for one state vector. Vectors without an entity
// id or without both coordinates are skipped with a *SkipError.
func (m Mapper) Map(sv model.StateVector) (*Event, error) {
	measured := sv.MeasuredAt()

	if strings.TrimSpace(sv.EntityID) == "" {
		return nil, skip(sv.EntityID, "missing_entity", ErrMissingEntity)
	}
	if !sv.HasPosition() {
		return nil, skip(sv.EntityID, "missing_position", ErrMissingPosition)
	}

	lat, lon := *sv.Latitude, *sv.Longitude
	if !validCoordinate(lat, 90) || !validCoordinate(lon, 180) {
		return nil, skip(sv.EntityID, "invalid_position",
			fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidPosition, lat, lon))
	}

	hae := Unknown
	if sv.Altitude != nil && finite(*sv.Altitude) {
		hae = *sv.Altitude
	}

	return &Event{
		Version: Version,
		UID:     m.UID(sv.EntityID),
		Type:    LookupKind(sv.EntityID),
		How:     HowMachinePredicted,
		Time:    Time(measured),
		Start:   Time(measured),
		Stale:   Time(measured.Add(m.StaleAfter)),
		Point: Point{
			Lat: Float(lat),
			Lon: Float(lon),
			HAE: Float(hae),
			CE:  Unknown,
			LE:  Unknown,
		},
		Detail: Detail{
			Contact: &Contact{Callsign: sv.DisplayName()},
			Track:   trackOf(sv),
		},
	}, nil
}

// LookupKind returns the CoT type for an aircraft. Every aircraft is
// currently reported as a neutral civil fixed-wing.
//
// TODO: resolve icao24 against an aircraft database to distinguish rotary
// wing, military, and ground vehicles.
func LookupKind(entityID string) string {
	return TypeCivilFixedWing
}

func trackOf(sv model.StateVector) *Track {
	if sv.TrueTrack == nil || sv.Velocity == nil {
		return nil
	}
	if !finite(*sv.TrueTrack) || !finite(*sv.Velocity) {
		return nil
	}
	return &Track{Course: Float(*sv.TrueTrack), Speed: Float(*sv.Velocity)}
}

func validCoordinate(v, limit float64) bool {
	return finite(v) && v >= -limit && v <= limit
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
