// Package model defines shared data types used across the bridge.
//
// Conventions:
//   - Coordinates: float64 degrees (WGS84)
//   - Altitudes: float64 meters
//   - Timestamps: int64 seconds since Unix epoch (as reported by the feed)
//   - Optional feed fields are pointers; nil means the feed reported null
package model
