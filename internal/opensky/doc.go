// Package opensky provides a client for the OpenSky Network REST API.
//
// Endpoint:
//   - https://opensky-network.org/api/states/all
//
// Anonymous requests are rate limited and see 10 second old data;
// authenticated requests (HTTP basic auth) get 5 second resolution.
// Each state is a positional JSON array, decoded into model.StateVector.
package opensky
