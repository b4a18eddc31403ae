package authz

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sentinelops/incident-core/internal/identity"
	"github.com/sentinelops/incident-core/internal/infrastructure/logging"
)

// Denial codes emitted by the gate. These are part of the wire contract.
const (
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeNoOrganization      = "NO_ORGANIZATION"
	CodeNotAMember          = "NOT_A_MEMBER"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeAuthError           = "AUTH_ERROR"
	CodeOrgCheckError       = "ORG_CHECK_ERROR"
	CodeRoleCheckError      = "ROLE_CHECK_ERROR"
	CodeOwnershipCheckError = "OWNERSHIP_CHECK_ERROR"
)

// DenyFunc writes a denial response. The HTTP layer supplies this so the
// gate stays independent of the response envelope.
type DenyFunc func(w http.ResponseWriter, r *http.Request, status int, code, message string)

// OwnerResolver resolves the owner user ID of the resource addressed by
// the request. An empty owner means the resource does not exist.
type OwnerResolver func(r *http.Request) (string, error)

// Gate provides the authorization middleware chain. Each check is
// independently attachable and fails closed: a provider error or panic
// denies the request with a 500-class code instead of letting it through.
//
// Checks communicate through the request context only; the request itself
// is never mutated, so handlers and later middleware see immutable values.
type Gate struct {
	resolver *Resolver
	provider identity.Provider
	logger   *logging.Logger
	deny     DenyFunc
}

// NewGate creates a Gate around an identity provider.
func NewGate(provider identity.Provider, logger *logging.Logger, deny DenyFunc) *Gate {
	return &Gate{
		resolver: NewResolver(provider, logger),
		provider: provider,
		logger:   logger.With("component", "authz"),
		deny:     deny,
	}
}

// RequireAuth rejects anonymous requests with 401 UNAUTHORIZED and
// attaches the resolved session to the request context.
//
// Idempotent: if a session is already attached (for example by an earlier
// RequireAuth in the same chain), the provider is not consulted again.
func (g *Gate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFrom(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}

		r2, ok := g.guard(w, r, CodeAuthError, func() (*http.Request, bool) {
			data, err := g.resolver.Resolve(r.Context(), r)
			if err != nil {
				g.logger.Error("session resolution failed", "error", err, "path", r.URL.Path)
				g.deny(w, r, http.StatusInternalServerError, CodeAuthError, "authentication check failed")
				return nil, false
			}
			if data == nil {
				g.deny(w, r, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
				return nil, false
			}
			return r.WithContext(WithSession(r.Context(), data)), true
		})
		if ok {
			next.ServeHTTP(w, r2)
		}
	})
}

// OptionalAuth attaches the session when one resolves, and always lets
// the request proceed. Provider faults are logged and treated as
// anonymous rather than blocking the request.
func (g *Gate) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFrom(r.Context()) == nil {
			if data := g.resolveLenient(r); data != nil {
				r = r.WithContext(WithSession(r.Context(), data))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireOrganization rejects requests whose session has no active
// organization with 403 NO_ORGANIZATION, and attaches the organization
// context. Requires RequireAuth (or OptionalAuth with a session) to have
// run; otherwise the request is rejected with 401.
func (g *Gate) RequireOrganization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := SessionFrom(r.Context())
		if session == nil {
			g.deny(w, r, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
			return
		}

		if OrganizationFrom(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}

		r2, ok := g.guard(w, r, CodeOrgCheckError, func() (*http.Request, bool) {
			org, err := g.provider.ActiveOrganization(r.Context(), session)
			if err != nil {
				g.logger.Error("organization resolution failed", "error", err, "path", r.URL.Path)
				g.deny(w, r, http.StatusInternalServerError, CodeOrgCheckError, "organization check failed")
				return nil, false
			}
			if org == nil {
				g.deny(w, r, http.StatusForbidden, CodeNoOrganization, "no active organization")
				return nil, false
			}
			return r.WithContext(WithOrganization(r.Context(), org)), true
		})
		if ok {
			next.ServeHTTP(w, r2)
		}
	})
}

// RequireRole rejects requests whose caller does not hold one of the
// allowed roles in the active organization. Matching is exact against the
// allow-set; there is no role hierarchy.
//
// An organization context attached earlier in the chain (by
// RequireOrganization) is reused; when RequireRole runs alone it resolves
// the organization itself. On success the organization and member role
// are attached to the request context.
func (g *Gate) RequireRole(roles ...Role) func(http.Handler) http.Handler {
	allowed := joinRoles(roles)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := SessionFrom(r.Context())
			if session == nil {
				g.deny(w, r, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
				return
			}

			r2, ok := g.guard(w, r, CodeRoleCheckError, func() (*http.Request, bool) {
				ctx, role, ok := g.memberContext(w, r, session)
				if !ok {
					return nil, false
				}

				if !roleAllowed(role, roles) {
					g.deny(w, r, http.StatusForbidden, CodeForbidden,
						fmt.Sprintf("access denied, required role: %s", allowed))
					return nil, false
				}
				return r.WithContext(ctx), true
			})
			if ok {
				next.ServeHTTP(w, r2)
			}
		})
	}
}

// RequirePermission rejects requests whose caller's role does not carry
// the given permission. This routes authorization through the role
// permission model instead of a literal allow-set, so granting a role a
// permission is enough to open the endpoints gated on it.
//
// Resolution mirrors RequireRole: a member role attached earlier in the
// chain is reused; otherwise the membership is resolved here and the
// organization and role are attached to the context.
func (g *Gate) RequirePermission(perm Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := SessionFrom(r.Context())
			if session == nil {
				g.deny(w, r, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
				return
			}

			r2, ok := g.guard(w, r, CodeRoleCheckError, func() (*http.Request, bool) {
				ctx, role, ok := g.memberContext(w, r, session)
				if !ok {
					return nil, false
				}

				if !HasPermission(role, perm) {
					g.deny(w, r, http.StatusForbidden, CodeForbidden,
						fmt.Sprintf("access denied, missing permission: %s", perm))
					return nil, false
				}
				return r.WithContext(ctx), true
			})
			if ok {
				next.ServeHTTP(w, r2)
			}
		})
	}
}

// memberContext resolves the caller's member role in the active
// organization. A role attached earlier in the chain is reused without
// consulting the provider again; organization context is likewise reused.
// On success the returned context carries both the organization and the
// role. Denials are written before a false return.
func (g *Gate) memberContext(w http.ResponseWriter, r *http.Request, session *identity.SessionData) (context.Context, Role, bool) {
	ctx := r.Context()

	if role, ok := MemberRoleFrom(ctx); ok {
		return ctx, role, true
	}

	org := OrganizationFrom(ctx)
	if org == nil {
		var err error
		org, err = g.provider.ActiveOrganization(ctx, session)
		if err != nil {
			g.logger.Error("organization resolution failed", "error", err, "path", r.URL.Path)
			g.deny(w, r, http.StatusInternalServerError, CodeRoleCheckError, "role check failed")
			return nil, "", false
		}
		if org == nil {
			g.deny(w, r, http.StatusForbidden, CodeNoOrganization, "no active organization")
			return nil, "", false
		}
	}

	member, err := g.provider.Membership(ctx, org.ID, session.User.ID)
	if err != nil {
		g.logger.Error("membership resolution failed", "error", err, "path", r.URL.Path)
		g.deny(w, r, http.StatusInternalServerError, CodeRoleCheckError, "role check failed")
		return nil, "", false
	}
	if member == nil {
		g.deny(w, r, http.StatusForbidden, CodeNotAMember, "not a member of the active organization")
		return nil, "", false
	}

	role := Role(member.Role)
	ctx = WithOrganization(ctx, org)
	ctx = WithMemberRole(ctx, role)
	return ctx, role, true
}

// RequireOwnership rejects requests whose caller does not own the
// addressed resource. The per-route resolver locates the owner; a missing
// resource yields 404 NOT_FOUND before any role comparison. Callers whose
// member role in the context is admin bypass the ownership comparison.
func (g *Gate) RequireOwnership(resolve OwnerResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := SessionFrom(r.Context())
			if session == nil {
				g.deny(w, r, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
				return
			}

			r2, ok := g.guard(w, r, CodeOwnershipCheckError, func() (*http.Request, bool) {
				owner, err := resolve(r)
				if err != nil {
					g.logger.Error("ownership resolution failed", "error", err, "path", r.URL.Path)
					g.deny(w, r, http.StatusInternalServerError, CodeOwnershipCheckError, "ownership check failed")
					return nil, false
				}
				if owner == "" {
					g.deny(w, r, http.StatusNotFound, CodeNotFound, "resource not found")
					return nil, false
				}

				if role, hasRole := MemberRoleFrom(r.Context()); hasRole && role == RoleAdmin {
					return r, true
				}

				if owner != session.User.ID {
					g.deny(w, r, http.StatusForbidden, CodeForbidden, "you do not have access to this resource")
					return nil, false
				}
				return r, true
			})
			if ok {
				next.ServeHTTP(w, r2)
			}
		})
	}
}

// guard runs an authorization check, converting panics into a fail-closed
// denial with the given code.
func (g *Gate) guard(w http.ResponseWriter, r *http.Request, code string, fn func() (*http.Request, bool)) (out *http.Request, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			g.logger.Error("authorization check panicked", "panic", rec, "path", r.URL.Path, "code", code)
			g.deny(w, r, http.StatusInternalServerError, code, "authorization check failed")
			out, ok = nil, false
		}
	}()
	return fn()
}

// resolveLenient resolves a session swallowing both errors and panics.
func (g *Gate) resolveLenient(r *http.Request) (data *identity.SessionData) {
	defer func() {
		if rec := recover(); rec != nil {
			g.logger.Warn("optional session resolution panicked, continuing anonymous",
				"panic", rec, "path", r.URL.Path)
			data = nil
		}
	}()
	return g.resolver.ResolveOptional(r.Context(), r)
}

// roleAllowed reports whether the role is in the allow-set.
func roleAllowed(role Role, allowed []Role) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

// joinRoles formats an allow-set for the FORBIDDEN message.
func joinRoles(roles []Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, " or ")
}
