package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sentinelops/incident-core/internal/authz"
)

// buildRouter creates the HTTP router with all routes and middleware.
//
// Authorization is layered per route group: RequireAuth gates everything
// below /auth, RequireOrganization scopes org-bound reads, and RequireRole
// protects analyst and admin operations. The analysis and reporting
// endpoints are gated on permissions instead of a role allow-set, so they
// follow the permission model directly. Ownership checks sit innermost so
// role context attached by the outer gates is visible to them.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	anyMember := s.gate.RequireRole(authz.RoleAdmin, authz.RoleAnalityk, authz.RolePracownik)
	analysts := s.gate.RequireRole(authz.RoleAdmin, authz.RoleAnalityk)
	adminOnly := s.gate.RequireRole(authz.RoleAdmin)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Session introspection works for anonymous callers too
		r.With(s.gate.OptionalAuth).Get("/auth/session", s.handleSession)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(s.gate.RequireAuth)

			r.Post("/auth/token", s.handleToken)
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			// Incident endpoints
			r.Route("/incidents", func(r chi.Router) {
				r.With(anyMember).Post("/", s.handleCreateIncident)
				r.With(s.gate.RequireOrganization, anyMember).Get("/", s.handleListIncidents)

				r.Route("/{id}", func(r chi.Router) {
					r.With(anyMember, s.gate.RequireOwnership(s.incidentOwner)).
						Get("/", s.handleGetIncident)
					r.With(analysts).Patch("/", s.handleUpdateIncident)
					r.With(s.gate.RequirePermission(authz.PermIncidentAnalyze)).
						Post("/analyze", s.handleAnalyzeIncident)
				})
			})

			// Report and analytics endpoints, gated on the permission model
			r.With(s.gate.RequirePermission(authz.PermReportsRead)).
				Get("/reports", s.handleListReports)
			r.With(s.gate.RequirePermission(authz.PermAnalyticsRead)).
				Get("/analytics/summary", s.handleAnalyticsSummary)

			// Organization endpoints
			r.Route("/organizations/active", func(r chi.Router) {
				r.With(s.gate.RequireOrganization).Get("/", s.handleActiveOrganization)
				r.With(adminOnly).Get("/members", s.handleListMembers)
			})
		})

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
