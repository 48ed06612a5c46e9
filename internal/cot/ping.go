package cot

import "time"

// Ping builds a TAK keepalive event. Servers use it to keep idle
// streaming connections open.
func Ping(uid string, now time.Time, staleAfter time.Duration) *Event {
	now = now.UTC()
	return &Event{
		Version: Version,
		UID:     uid,
		Type:    TypePing,
		How:     HowHumanGenerated,
		Time:    Time(now),
		Start:   Time(now),
		Stale:   Time(now.Add(staleAfter)),
		Point: Point{
			HAE: Unknown,
			CE:  Unknown,
			LE:  Unknown,
		},
	}
}

// NewPinger returns a function that encodes a fresh ping on every call.
func NewPinger(uid string, staleAfter time.Duration) func() ([]byte, error) {
	return func() ([]byte, error) {
		return Ping(uid, time.Now(), staleAfter).Encode()
	}
}
