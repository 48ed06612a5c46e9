// Package poller implements the Poll Loop component.
//
// The Poll Loop:
//   - Connects the transport once and then polls on a fixed interval
//   - Defers a poll while the transport is disconnected
//   - Fetches state vectors with a bounded timeout
//   - Maps, encodes and sends each vector in source order
//   - Skips unusable vectors without aborting the batch
//   - Closes the transport when it returns
package poller
