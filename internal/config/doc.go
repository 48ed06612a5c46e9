// Package config loads the bridge configuration.
//
// Values are layered, lowest precedence first:
//   - built-in defaults (defaults.go)
//   - an optional YAML file; ${VAR} references are expanded from the environment
//   - environment variables (COT_ADDRESS, OPENSKY_INTERVAL, ...)
//   - command-line flags (--cot.address, --opensky.interval, ...)
//
// Durations keep the millisecond integer units of the original option names.
package config
