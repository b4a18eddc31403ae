// Package incident manages incident reports: creation, status lifecycle,
// analysis, and the audit trail of status transitions.
package incident

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an incident.
type Status string

const (
	// StatusPending is the initial state of a newly reported incident.
	StatusPending Status = "pending"

	// StatusAnalyzing means an analyst has taken the incident on.
	StatusAnalyzing Status = "analyzing"

	// StatusResolved is a terminal state: the incident was handled.
	StatusResolved Status = "resolved"

	// StatusRejected is a terminal state: the incident was dismissed.
	StatusRejected Status = "rejected"
)

// ValidStatuses is the closed set of incident statuses.
var ValidStatuses = []Status{StatusPending, StatusAnalyzing, StatusResolved, StatusRejected}

// IsValidStatus returns true if the status is one of the known states.
func IsValidStatus(s Status) bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// validTransitions maps each status to the states it may move to.
// Resolved and rejected are terminal.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusAnalyzing, StatusRejected},
	StatusAnalyzing: {StatusResolved, StatusRejected},
}

// CanTransition returns true if an incident may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, v := range validTransitions[from] {
		if v == to {
			return true
		}
	}
	return false
}

// Category is the analyst-assigned severity classification.
type Category string

const (
	// CategoryCzerwony marks a critical incident.
	CategoryCzerwony Category = "Czerwony"

	// CategoryZolty marks an incident needing attention.
	CategoryZolty Category = "Żółty"

	// CategoryZielony marks a minor incident.
	CategoryZielony Category = "Zielony"
)

// ValidCategories is the closed set of severity categories.
var ValidCategories = []Category{CategoryCzerwony, CategoryZolty, CategoryZielony}

// IsValidCategory returns true if the category is one of the known values.
func IsValidCategory(c Category) bool {
	for _, v := range ValidCategories {
		if c == v {
			return true
		}
	}
	return false
}

// Incident represents a reported incident within an organization.
// UserID is the reporter and owner of the incident.
type Incident struct {
	ID              string    `json:"id"`
	OrganizationID  string    `json:"organization_id"`
	UserID          string    `json:"user_id"`
	Status          Status    `json:"status"`
	UserDescription string    `json:"user_description"`
	AnalystNote     string    `json:"analyst_note,omitempty"`
	Category        Category  `json:"category,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AuditEntry records a single status transition of an incident.
type AuditEntry struct {
	ID         int64     `json:"id"`
	IncidentID string    `json:"incident_id"`
	ChangedBy  string    `json:"changed_by"`
	OldStatus  Status    `json:"old_status"`
	NewStatus  Status    `json:"new_status"`
	ChangedAt  time.Time `json:"changed_at"`
}

// Filter controls which incidents to return.
type Filter struct {
	OrganizationID string // required: incidents are always org-scoped
	UserID         string // optional: restrict to one reporter (own-only views)
	Status         Status // optional: filter by status
	Limit          int    // default 50, max 200
	Offset         int    // pagination offset
}

// ListResult contains paginated incident results.
type ListResult struct {
	Incidents []Incident `json:"incidents"`
	Total     int        `json:"total"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

// Summary aggregates an organization's incidents for analytics.
type Summary struct {
	Total      int              `json:"total"`
	ByStatus   map[Status]int   `json:"by_status"`
	ByCategory map[Category]int `json:"by_category"`
}

// incidentIDPrefix namespaces incident identifiers.
const incidentIDPrefix = "inc-"

// NewIncidentID generates a prefixed identifier for an incident.
func NewIncidentID() string {
	return incidentIDPrefix + uuid.NewString()[:16]
}

// Sentinel errors for incident operations.
var (
	ErrIncidentNotFound  = errors.New("incident not found")
	ErrInvalidStatus     = errors.New("invalid incident status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidCategory   = errors.New("invalid incident category")
)
