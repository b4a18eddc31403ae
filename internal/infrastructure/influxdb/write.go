package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteIncidentEvent records an incident lifecycle event.
//
// This is the primary method for feeding the analytics pipeline. The
// write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - organizationID: Organization the incident belongs to
//   - incidentID: Incident identifier
//   - event: Lifecycle event name (e.g., "created", "status_changed")
//   - status: Incident status after the event
//
// Example:
//
//	client.WriteIncidentEvent("org-a1b2", "inc-c3d4", "status_changed", "analyzing")
func (c *Client) WriteIncidentEvent(organizationID, incidentID, event, status string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"incident_events",
		map[string]string{
			"organization_id": organizationID,
			"event":           event,
			"status":          status,
		},
		map[string]interface{}{
			"incident_id": incidentID,
			"count":       1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteAuthzDenial records an authorization denial for security analytics.
//
// Denial volume per organization and code surfaces probing and
// misconfigured clients.
//
// Parameters:
//   - organizationID: Organization scope of the denied request, may be empty
//   - code: Denial code (e.g., "FORBIDDEN", "NOT_A_MEMBER")
//   - path: Request path that was denied
func (c *Client) WriteAuthzDenial(organizationID, code, path string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"authz_denials",
		map[string]string{
			"organization_id": organizationID,
			"code":            code,
		},
		map[string]interface{}{
			"path":  path,
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
