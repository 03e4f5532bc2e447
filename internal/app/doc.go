// Package app assembles the districtpulse HTTP server: configuration,
// logging, telemetry, storage, services, and the chi router, with
// graceful startup and shutdown.
package app
