// Package cot builds and encodes Cursor-on-Target (CoT) events.
//
// A CoT event describes one entity on a tactical map: identity (uid, type),
// a validity window (time, start, stale), a WGS84 point, and free-form
// detail. TAK servers accept one XML document per event on a plain TCP
// stream or as a WebSocket text frame.
//
// The Mapper turns a model.StateVector into an Event. It is a pure function
// of its input: the same state vector always yields the same uid.
package cot
