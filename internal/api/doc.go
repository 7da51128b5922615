// Package api serves the bridge's read-only HTTP status surface.
//
// This package provides:
//   - Prometheus metrics at /metrics
//   - A health endpoint reporting the broker session and hub count
//   - The current hub snapshot, in the same JSON form as the MQTT state topics
//   - Middleware stack (request ID, logging, recovery)
//
// Nothing here switches ports; commands only arrive over MQTT.
package api
