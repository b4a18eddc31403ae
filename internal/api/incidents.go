package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sentinelops/incident-core/internal/authz"
	"github.com/sentinelops/incident-core/internal/incident"
	"github.com/sentinelops/incident-core/internal/infrastructure/mqtt"
)

// mqttTopics builds incident topic names for broker publications.
var mqttTopics = mqtt.Topics{}

// maxDescriptionLength bounds the reporter-supplied description.
const maxDescriptionLength = 5000

// createIncidentRequest is the body for POST /incidents.
type createIncidentRequest struct {
	Description string `json:"description"`
}

// updateIncidentRequest is the body for PATCH /incidents/{id}.
// Absent fields are left untouched.
type updateIncidentRequest struct {
	AnalystNote *string `json:"analyst_note,omitempty"`
	Category    *string `json:"category,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// incidentOwner resolves the reporter of the incident addressed by the
// request, for the ownership gate. Missing incidents yield an empty owner.
func (s *Server) incidentOwner(r *http.Request) (string, error) {
	return s.incidents.GetOwner(r.Context(), chi.URLParam(r, "id"))
}

// handleCreateIncident files a new incident in the caller's active
// organization. Every member role may report; the incident starts in
// pending status owned by the reporter.
func (s *Server) handleCreateIncident(w http.ResponseWriter, r *http.Request) {
	session := authz.SessionFrom(r.Context())
	org := authz.OrganizationFrom(r.Context())

	var req createIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidJSON, "invalid JSON body")
		return
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		writeErrorDetails(w, http.StatusBadRequest, ErrCodeValidation, "validation failed",
			map[string]string{"description": "description is required"})
		return
	}
	if len(description) > maxDescriptionLength {
		writeErrorDetails(w, http.StatusBadRequest, ErrCodeValidation, "validation failed",
			map[string]string{"description": "description is too long"})
		return
	}

	inc := &incident.Incident{
		OrganizationID:  org.ID,
		UserID:          session.User.ID,
		UserDescription: description,
	}
	if err := s.incidents.Create(r.Context(), inc); err != nil {
		s.writeStorageError(w, err)
		return
	}

	s.logger.Info("incident created",
		"incident_id", inc.ID, "organization_id", org.ID, "user_id", session.User.ID)
	s.publishIncidentEvent("created", inc)

	writeSuccess(w, http.StatusCreated, inc)
}

// handleListIncidents lists incidents in the caller's active organization.
// Members with the pracownik role only see incidents they reported;
// admins and analysts see the whole organization.
func (s *Server) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	session := authz.SessionFrom(r.Context())
	org := authz.OrganizationFrom(r.Context())

	filter := incident.Filter{OrganizationID: org.ID}
	if role, ok := authz.MemberRoleFrom(r.Context()); ok && role == authz.RolePracownik {
		filter.UserID = session.User.ID
	}

	q := r.URL.Query()
	if status := q.Get("status"); status != "" {
		filter.Status = incident.Status(status)
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))   //nolint:errcheck // zero means default
	filter.Offset, _ = strconv.Atoi(q.Get("offset")) //nolint:errcheck // zero means first page

	result, err := s.incidents.List(r.Context(), filter)
	if err != nil {
		if errors.Is(err, incident.ErrInvalidStatus) {
			writeErrorDetails(w, http.StatusBadRequest, ErrCodeValidation, "validation failed",
				map[string]string{"status": "unknown status"})
			return
		}
		s.writeStorageError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}

// handleGetIncident returns a single incident with its audit trail.
// The ownership gate has already verified access; the organization scope
// check here keeps cross-organization IDs indistinguishable from missing
// ones.
func (s *Server) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	org := authz.OrganizationFrom(r.Context())

	inc, err := s.incidents.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, incident.ErrIncidentNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "incident not found")
			return
		}
		s.writeStorageError(w, err)
		return
	}
	if inc.OrganizationID != org.ID {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "incident not found")
		return
	}

	audit, err := s.incidents.ListAudit(r.Context(), inc.ID)
	if err != nil {
		s.writeStorageError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"incident": inc,
		"audit":    audit,
	})
}

// handleUpdateIncident applies analyst edits: note, category, and
// optionally a status transition. Transitions run through the audit
// trail; invalid ones are rejected without touching the other fields.
func (s *Server) handleUpdateIncident(w http.ResponseWriter, r *http.Request) {
	session := authz.SessionFrom(r.Context())
	org := authz.OrganizationFrom(r.Context())

	var req updateIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidJSON, "invalid JSON body")
		return
	}

	inc, err := s.incidents.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, incident.ErrIncidentNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "incident not found")
			return
		}
		s.writeStorageError(w, err)
		return
	}
	if inc.OrganizationID != org.ID {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "incident not found")
		return
	}

	// Status first: if the transition is invalid nothing is written.
	if req.Status != nil {
		to := incident.Status(*req.Status)
		if to != inc.Status {
			updated, err := s.incidents.ChangeStatus(r.Context(), inc.ID, to, session.User.ID)
			if err != nil {
				s.writeTransitionError(w, err)
				return
			}
			inc = updated
			s.publishIncidentEvent("status_changed", inc)
		}
	}

	if req.AnalystNote != nil || req.Category != nil {
		if req.AnalystNote != nil {
			inc.AnalystNote = *req.AnalystNote
		}
		if req.Category != nil {
			inc.Category = incident.Category(*req.Category)
		}
		if err := s.incidents.Update(r.Context(), inc); err != nil {
			if errors.Is(err, incident.ErrInvalidCategory) {
				writeErrorDetails(w, http.StatusBadRequest, ErrCodeValidation, "validation failed",
					map[string]string{"category": "unknown category"})
				return
			}
			s.writeStorageError(w, err)
			return
		}
	}

	writeSuccess(w, http.StatusOK, inc)
}

// handleAnalyzeIncident claims a pending incident for analysis, moving it
// to the analyzing status under the caller's name.
func (s *Server) handleAnalyzeIncident(w http.ResponseWriter, r *http.Request) {
	session := authz.SessionFrom(r.Context())
	org := authz.OrganizationFrom(r.Context())

	id := chi.URLParam(r, "id")
	inc, err := s.incidents.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, incident.ErrIncidentNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "incident not found")
			return
		}
		s.writeStorageError(w, err)
		return
	}
	if inc.OrganizationID != org.ID {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "incident not found")
		return
	}

	updated, err := s.incidents.ChangeStatus(r.Context(), id, incident.StatusAnalyzing, session.User.ID)
	if err != nil {
		s.writeTransitionError(w, err)
		return
	}

	s.logger.Info("incident analysis started",
		"incident_id", id, "analyst_id", session.User.ID)
	s.publishIncidentEvent("status_changed", updated)

	writeSuccess(w, http.StatusOK, updated)
}

// writeTransitionError maps status-change failures to responses.
func (s *Server) writeTransitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, incident.ErrIncidentNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "incident not found")
	case errors.Is(err, incident.ErrInvalidStatus):
		writeErrorDetails(w, http.StatusBadRequest, ErrCodeValidation, "validation failed",
			map[string]string{"status": "unknown status"})
	case errors.Is(err, incident.ErrInvalidTransition):
		writeError(w, http.StatusConflict, ErrCodeInvalidState, err.Error())
	default:
		s.writeStorageError(w, err)
	}
}

// publishIncidentEvent fans an incident event out to the WebSocket hub,
// the MQTT broker, and the analytics sink. All three are best-effort;
// the HTTP response never waits on them.
func (s *Server) publishIncidentEvent(event string, inc *incident.Incident) {
	if s.hub != nil {
		s.hub.Broadcast(inc.OrganizationID, "incident."+event, inc)
	}

	if s.mqtt != nil {
		payload, err := json.Marshal(map[string]any{
			"incident_id":     inc.ID,
			"organization_id": inc.OrganizationID,
			"status":          inc.Status,
			"updated_at":      inc.UpdatedAt,
		})
		if err == nil {
			topic := mqttTopics.IncidentStatus(inc.OrganizationID, inc.ID)
			if err := s.mqtt.PublishRetained(topic, payload); err != nil {
				s.logger.Warn("mqtt status publish failed", "topic", topic, "error", err)
			}
		}
	}

	if s.influx != nil {
		s.influx.WriteIncidentEvent(inc.OrganizationID, inc.ID, event, string(inc.Status))
	}
}
