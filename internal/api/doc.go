// Package api implements logship's HTTP endpoint for health and metrics.
//
// This package provides:
//   - GET /health: broker connectivity as JSON (200 when connected, 503 otherwise)
//   - GET /metrics: Prometheus exposition of the appender and connection metrics
//   - Middleware stack (request ID, logging, recovery)
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// # Graceful Degradation
//
// /health reports the broker connection, not the process: a 503 means log
// records are currently failing to publish, while the process itself keeps
// running and the connection keeps retrying in the background.
package api
