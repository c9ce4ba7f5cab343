// Package server provides the HTTP server for the local push mirror.
//
// This package handles all HTTP concerns:
//
//   - Page serving: the embedded page shell with the current fragment at "/"
//   - Push JSON: the current payload at "/json", same shape as upstream
//   - Status: poll loop status at "/api/status"
//   - Server-Sent Events: fragment updates at "/api/sse"
//   - Metrics: poll loop status for Prometheus at "/metrics"
//
// Routing uses chi with request IDs and panic recovery. The server supports
// graceful shutdown via context cancellation, with a 5-second timeout for
// in-flight requests.
package server
