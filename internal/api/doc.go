// Package api implements the HTTP REST API and WebSocket server for the
// incident management core.
//
// This package provides:
//   - REST endpoints for incident reporting, analysis, and organization views
//   - WebSocket hub for real-time incident event broadcasts, scoped per organization
//   - Session and JWT access token operations with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS, body size limits)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between clients and the incident store. Every route
// below /api/v1 (except health and session introspection) passes through
// the authorization gate, which resolves the caller's session, active
// organization, and member role before any handler runs. Handlers read
// those values from the request context and never re-resolve them.
//
// Incident lifecycle events fan out three ways after the database write:
// to WebSocket clients of the same organization, to the MQTT broker on
// retained per-incident status topics, and to the InfluxDB analytics
// sink. All three are optional and best-effort.
//
// # Security
//
// Callers authenticate with an opaque session token (cookie or bearer)
// or a short-lived JWT bound to a stored session. WebSocket connections
// use single-use tickets to prevent token leakage in URLs; the ticket
// pins the caller's organization at issue time.
package api
