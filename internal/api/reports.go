package api

import (
	"net/http"
	"strconv"

	"github.com/sentinelops/incident-core/internal/authz"
)

// handleListReports returns incidents that reached a terminal state in
// the caller's active organization, newest first. This is the analyst
// reporting view; access requires the reports:read permission.
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	org := authz.OrganizationFrom(r.Context())

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))   //nolint:errcheck // zero means default
	offset, _ := strconv.Atoi(q.Get("offset")) //nolint:errcheck // zero means first page

	result, err := s.incidents.ListAnalyzed(r.Context(), org.ID, limit, offset)
	if err != nil {
		s.writeStorageError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}

// handleAnalyticsSummary aggregates the active organization's incidents
// by status and category.
func (s *Server) handleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	org := authz.OrganizationFrom(r.Context())

	summary, err := s.incidents.Summary(r.Context(), org.ID)
	if err != nil {
		s.writeStorageError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, summary)
}
