package mqtt

import "fmt"

// Topic prefixes for the incident event hierarchy.
//
// Status topics use the scheme: incident/{organization_id}/{incident_id}/status
// so brokers can apply per-organization ACLs on the second level.
const (
	// TopicPrefixIncident is the base for incident event topics.
	TopicPrefixIncident = "incident"

	// TopicPrefixSystem is the base for service-level topics.
	TopicPrefixSystem = "incident/system"
)

// Topics provides builders for incident MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	statusTopic := topics.IncidentStatus("org-a1b2", "inc-c3d4")
//	// Returns: "incident/org-a1b2/inc-c3d4/status"
type Topics struct{}

// IncidentStatus returns the retained status topic for one incident.
//
// Example: incident/org-a1b2/inc-c3d4/status
func (Topics) IncidentStatus(organizationID, incidentID string) string {
	return fmt.Sprintf("%s/%s/%s/status", TopicPrefixIncident, organizationID, incidentID)
}

// IncidentEvent returns the non-retained event topic for one incident.
//
// Example: incident/org-a1b2/inc-c3d4/event
func (Topics) IncidentEvent(organizationID, incidentID string) string {
	return fmt.Sprintf("%s/%s/%s/event", TopicPrefixIncident, organizationID, incidentID)
}

// SystemStatus returns the service status topic.
//
// Example: incident/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// OrganizationStatuses returns a pattern matching all status topics of
// one organization.
//
// Pattern: incident/org-a1b2/+/status
func (Topics) OrganizationStatuses(organizationID string) string {
	return fmt.Sprintf("%s/%s/+/status", TopicPrefixIncident, organizationID)
}

// AllStatuses returns a pattern matching every incident status topic.
//
// Pattern: incident/+/+/status
func (Topics) AllStatuses() string {
	return fmt.Sprintf("%s/+/+/status", TopicPrefixIncident)
}
