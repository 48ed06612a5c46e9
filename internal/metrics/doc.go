// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Poll cycles by result and their duration
//   - State vectors fetched, events sent, send errors, skips by reason
//   - TAK connect attempts, disconnects and the connected gauge
package metrics
