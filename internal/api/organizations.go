package api

import (
	"errors"
	"net/http"

	"github.com/sentinelops/incident-core/internal/authz"
	"github.com/sentinelops/incident-core/internal/identity"
)

// handleActiveOrganization returns the caller's active organization.
func (s *Server) handleActiveOrganization(w http.ResponseWriter, r *http.Request) {
	org := authz.OrganizationFrom(r.Context())

	full, err := s.orgs.GetByID(r.Context(), org.ID)
	if err != nil {
		if errors.Is(err, identity.ErrOrganizationNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "organization not found")
			return
		}
		s.writeStorageError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, full)
}

// handleListMembers lists the members of the active organization.
// Admin only; the member list exposes every user in the organization.
func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	org := authz.OrganizationFrom(r.Context())

	members, err := s.orgs.ListMembers(r.Context(), org.ID)
	if err != nil {
		s.writeStorageError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"members": members,
		"total":   len(members),
	})
}
