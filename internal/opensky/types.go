package opensky

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rickgao/opensky2cot/internal/model"
)

// StatesResponse from GET /states/all
type StatesResponse struct {
	Time   int64               `json:"time"`   // Snapshot time (seconds since epoch)
	States [][]json.RawMessage `json:"states"` // One positional array per aircraft, null when empty
}

// Positions within a state array.
const (
	idxICAO24         = 0
	idxCallsign       = 1
	idxOriginCountry  = 2
	idxTimePosition   = 3
	idxLastContact    = 4
	idxLongitude      = 5
	idxLatitude       = 6
	idxBaroAltitude   = 7
	idxOnGround       = 8
	idxVelocity       = 9
	idxTrueTrack      = 10
	idxVerticalRate   = 11
	idxSensors        = 12
	idxGeoAltitude    = 13
	idxSquawk         = 14
	idxSPI            = 15
	idxPositionSource = 16
)

var (
	errNoICAO24       = errors.New("icao24 is null")
	errNoPositionTime = errors.New("time_position is null")
)

// decodeState converts one positional state array.
func decodeState(row []json.RawMessage) (model.StateVector, error) {
	var sv model.StateVector

	icao, err := stringAt(row, idxICAO24)
	if err != nil {
		return sv, err
	}
	if icao == nil || *icao == "" {
		return sv, errNoICAO24
	}
	sv.EntityID = *icao

	if sv.Callsign, err = stringAt(row, idxCallsign); err != nil {
		return sv, err
	}
	country, err := stringAt(row, idxOriginCountry)
	if err != nil {
		return sv, err
	}
	if country != nil {
		sv.OriginCountry = *country
	}

	timePosition, err := floatAt(row, idxTimePosition)
	if err != nil {
		return sv, err
	}
	lastContact, err := floatAt(row, idxLastContact)
	if err != nil {
		return sv, err
	}
	if lastContact != nil {
		sv.LastContact = int64(*lastContact)
	}
	// time_position is null when no position was received in the last 15s.
	// last_contact is a receive time and cannot stand in for it.
	if timePosition == nil {
		return sv, errNoPositionTime
	}
	sv.PositionTime = int64(*timePosition)

	if sv.Longitude, err = floatAt(row, idxLongitude); err != nil {
		return sv, err
	}
	if sv.Latitude, err = floatAt(row, idxLatitude); err != nil {
		return sv, err
	}
	if sv.Altitude, err = floatAt(row, idxBaroAltitude); err != nil {
		return sv, err
	}
	onGround, err := boolAt(row, idxOnGround)
	if err != nil {
		return sv, err
	}
	sv.OnGround = onGround != nil && *onGround
	if sv.Velocity, err = floatAt(row, idxVelocity); err != nil {
		return sv, err
	}
	if sv.TrueTrack, err = floatAt(row, idxTrueTrack); err != nil {
		return sv, err
	}

	return sv, nil
}

func stringAt(row []json.RawMessage, i int) (*string, error) {
	var v *string
	if err := decodeAt(row, i, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func floatAt(row []json.RawMessage, i int) (*float64, error) {
	var v *float64
	if err := decodeAt(row, i, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func boolAt(row []json.RawMessage, i int) (*bool, error) {
	var v *bool
	if err := decodeAt(row, i, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// decodeAt leaves dst untouched when the index is past the end of the row.
func decodeAt(row []json.RawMessage, i int, dst any) error {
	if i >= len(row) || row[i] == nil {
		return nil
	}
	if err := json.Unmarshal(row[i], dst); err != nil {
		return fmt.Errorf("field %d: %w", i, err)
	}
	return nil
}
