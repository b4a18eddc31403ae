// Package influxdb provides InfluxDB connectivity for the incident
// management core.
//
// It wraps the official influxdb-client-go v2 library with service
// patterns for connection management, event writing, and health
// monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Incident lifecycle events (created, status transitions)
//   - Authorization denial counters for security analytics
//   - Service-level operational measurements
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "sentinelops",
//	    Bucket: "incidents",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Write incident events
//	client.WriteIncidentEvent("org-a1b2", "inc-c3d4", "status_changed", "analyzing")
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead for high-frequency event data.
package influxdb
