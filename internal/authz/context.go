package authz

import (
	"context"

	"github.com/sentinelops/incident-core/internal/identity"
)

// contextKey is a private type for context values to avoid collisions.
type contextKey string

const (
	sessionKey      contextKey = "authz.session"
	organizationKey contextKey = "authz.organization"
	memberRoleKey   contextKey = "authz.member_role"
)

// WithSession returns a context carrying the resolved session data.
func WithSession(ctx context.Context, data *identity.SessionData) context.Context {
	return context.WithValue(ctx, sessionKey, data)
}

// SessionFrom extracts the resolved session from the context.
// Returns nil if no session was attached.
func SessionFrom(ctx context.Context) *identity.SessionData {
	data, _ := ctx.Value(sessionKey).(*identity.SessionData)
	return data
}

// WithOrganization returns a context carrying the active organization.
func WithOrganization(ctx context.Context, org *identity.OrganizationContext) context.Context {
	return context.WithValue(ctx, organizationKey, org)
}

// OrganizationFrom extracts the active organization from the context.
// Returns nil if no organization was attached.
func OrganizationFrom(ctx context.Context) *identity.OrganizationContext {
	org, _ := ctx.Value(organizationKey).(*identity.OrganizationContext)
	return org
}

// WithMemberRole returns a context carrying the caller's role in the
// active organization.
func WithMemberRole(ctx context.Context, role Role) context.Context {
	return context.WithValue(ctx, memberRoleKey, role)
}

// MemberRoleFrom extracts the caller's member role from the context.
// The second return is false if no role was attached.
func MemberRoleFrom(ctx context.Context) (Role, bool) {
	role, ok := ctx.Value(memberRoleKey).(Role)
	return role, ok
}
