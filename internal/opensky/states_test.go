package opensky

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const statesFixture = `{
  "time": 1700000005,
  "states": [
    ["abcdef", "UAL123  ", "United States", 1700000000, 1700000003, -122.1, 37.5, 1000.0, false, 230.5, 271.2, 0.0, null, 1050.0, "1200", false, 0],
    ["a1b2c3", null, "United States", null, 1700000002, null, null, null, true, 0.0, null, null, null, null, null, false, 0],
    [42, "BAD", "Nowhere", 1700000000, 1700000000, 1.0, 1.0, 1.0, false, 1.0, 1.0, 1.0, null, 1.0, null, false, 0],
    ["3c6444", "DLH4AB", "Germany", 1699999990, 1699999999, 8.5, "fifty", 11000.0, false, 250.0, 90.0, 0.0, null, 11100.0, null, false, 0],
    ["4b1814", "SWR12", "Switzerland", 1700000001, 1700000004, 7.9, 47.4]
  ]
}`

func TestDecodeState(t *testing.T) {
	var resp StatesResponse
	if err := json.Unmarshal([]byte(statesFixture), &resp); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}

	t.Run("full row", func(t *testing.T) {
		sv, err := decodeState(resp.States[0])
		if err != nil {
			t.Fatalf("decodeState failed: %v", err)
		}
		if sv.EntityID != "abcdef" {
			t.Errorf("EntityID = %q, want %q", sv.EntityID, "abcdef")
		}
		if sv.Callsign == nil || *sv.Callsign != "UAL123  " {
			t.Errorf("Callsign = %v, want untrimmed %q", sv.Callsign, "UAL123  ")
		}
		if sv.OriginCountry != "United States" {
			t.Errorf("OriginCountry = %q", sv.OriginCountry)
		}
		if sv.Latitude == nil || *sv.Latitude != 37.5 {
			t.Errorf("Latitude = %v, want 37.5", sv.Latitude)
		}
		if sv.Longitude == nil || *sv.Longitude != -122.1 {
			t.Errorf("Longitude = %v, want -122.1", sv.Longitude)
		}
		if sv.Altitude == nil || *sv.Altitude != 1000.0 {
			t.Errorf("Altitude = %v, want 1000", sv.Altitude)
		}
		if sv.Velocity == nil || *sv.Velocity != 230.5 {
			t.Errorf("Velocity = %v, want 230.5", sv.Velocity)
		}
		if sv.TrueTrack == nil || *sv.TrueTrack != 271.2 {
			t.Errorf("TrueTrack = %v, want 271.2", sv.TrueTrack)
		}
		if sv.PositionTime != 1700000000 {
			t.Errorf("PositionTime = %d, want 1700000000", sv.PositionTime)
		}
		if sv.LastContact != 1700000003 {
			t.Errorf("LastContact = %d, want 1700000003", sv.LastContact)
		}
		if sv.OnGround {
			t.Error("OnGround = true, want false")
		}
	})

	t.Run("null time_position", func(t *testing.T) {
		sv, err := decodeState(resp.States[1])
		if !errors.Is(err, errNoPositionTime) {
			t.Fatalf("err = %v, want %v", err, errNoPositionTime)
		}
		if sv.PositionTime != 0 {
			t.Errorf("PositionTime = %d, want 0", sv.PositionTime)
		}
	})

	t.Run("null time_position with position", func(t *testing.T) {
		var row []json.RawMessage
		raw := `["abcdef", "UAL1  ", "US", null, 1700000100, -122.1, 37.5, 1000.0, false, 230.5, 271.2, 0.0, null, 1050.0, null, false, 0]`
		if err := json.Unmarshal([]byte(raw), &row); err != nil {
			t.Fatalf("unmarshal row: %v", err)
		}
		if _, err := decodeState(row); !errors.Is(err, errNoPositionTime) {
			t.Errorf("err = %v, want %v", err, errNoPositionTime)
		}
	})

	t.Run("non-string icao24", func(t *testing.T) {
		if _, err := decodeState(resp.States[2]); err == nil {
			t.Error("expected error for numeric icao24")
		}
	})

	t.Run("malformed latitude", func(t *testing.T) {
		if _, err := decodeState(resp.States[3]); err == nil {
			t.Error("expected error for string latitude")
		}
	})

	t.Run("short row", func(t *testing.T) {
		sv, err := decodeState(resp.States[4])
		if err != nil {
			t.Fatalf("decodeState failed: %v", err)
		}
		if sv.Altitude != nil || sv.Velocity != nil {
			t.Errorf("expected missing trailing fields to be nil, got %+v", sv)
		}
		if !sv.HasPosition() {
			t.Error("expected position")
		}
	})

	t.Run("empty row", func(t *testing.T) {
		if _, err := decodeState(nil); err != errNoICAO24 {
			t.Errorf("err = %v, want %v", err, errNoICAO24)
		}
	})
}

func TestFetchStates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/states/all" {
			t.Errorf("path = %q, want /states/all", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(statesFixture))
	}))
	defer server.Close()

	c := NewClient(server.URL, WithTimeout(5*time.Second))
	states, err := c.FetchStates(context.Background())
	if err != nil {
		t.Fatalf("FetchStates failed: %v", err)
	}

	// Malformed rows and rows without a position time are dropped; order is preserved.
	want := []string{"abcdef", "4b1814"}
	if len(states) != len(want) {
		t.Fatalf("len(states) = %d, want %d", len(states), len(want))
	}
	for i, id := range want {
		if states[i].EntityID != id {
			t.Errorf("states[%d].EntityID = %q, want %q", i, states[i].EntityID, id)
		}
	}
}

func TestFetchStates_NullStates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"time": 1700000000, "states": null}`))
	}))
	defer server.Close()

	states, err := NewClient(server.URL).FetchStates(context.Background())
	if err != nil {
		t.Fatalf("FetchStates failed: %v", err)
	}
	if len(states) != 0 {
		t.Errorf("len(states) = %d, want 0", len(states))
	}
}

func TestFetchStates_Errors(t *testing.T) {
	t.Run("invalid json", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>maintenance</html>`))
		}))
		defer server.Close()

		if _, err := NewClient(server.URL).FetchStates(context.Background()); err == nil {
			t.Error("expected error for invalid json")
		}
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		c := NewClient(server.URL, WithRetries(0, 0))
		if _, err := c.FetchStates(context.Background()); err == nil {
			t.Error("expected error for 503")
		}
	})
}
