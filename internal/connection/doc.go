// Package connection implements the Transport Client component.
//
// The Transport Client:
//   - Owns one outbound stream to the TAK server (TCP, or CoT over WebSocket)
//   - Dials in the background; Connect never blocks
//   - Resolves the host before every dial attempt
//   - Reconnects after a fixed delay, or exponentially when a multiplier is set
//   - Detects peer closure with a read loop and optionally sends keepalives
//   - Serializes writes and reports state without blocking
package connection
