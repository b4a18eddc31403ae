package authz

// Role represents an authorisation tier within an organization.
// Roles are scoped to a membership: the same user may hold different
// roles in different organizations.
type Role string

const (
	// RoleAdmin has every permission on every resource, including
	// ownership bypass on owner-scoped resources.
	RoleAdmin Role = "admin"

	// RoleAnalityk is an analyst: read access across the organization,
	// full control of reports, and incident analysis.
	RoleAnalityk Role = "analityk"

	// RolePracownik is a regular employee: can report incidents and
	// read organization basics, nothing more.
	RolePracownik Role = "pracownik"
)

// ValidRoles is the closed set of member roles.
var ValidRoles = []Role{RoleAdmin, RoleAnalityk, RolePracownik}

// IsValidRole returns true if the role is one of the known member roles.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Permission represents a named capability, formatted "resource:action".
type Permission string

// Permission constants.
const (
	PermOrganizationCreate Permission = "organization:create"
	PermOrganizationRead   Permission = "organization:read"
	PermOrganizationUpdate Permission = "organization:update"
	PermOrganizationDelete Permission = "organization:delete"

	PermMemberCreate Permission = "member:create"
	PermMemberRead   Permission = "member:read"
	PermMemberUpdate Permission = "member:update"
	PermMemberDelete Permission = "member:delete"

	PermTeamCreate Permission = "team:create"
	PermTeamRead   Permission = "team:read"
	PermTeamUpdate Permission = "team:update"
	PermTeamDelete Permission = "team:delete"

	PermInvitationCreate Permission = "invitation:create"
	PermInvitationRead   Permission = "invitation:read"
	PermInvitationUpdate Permission = "invitation:update"
	PermInvitationDelete Permission = "invitation:delete"
	PermInvitationCancel Permission = "invitation:cancel"

	PermReportsCreate Permission = "reports:create"
	PermReportsRead   Permission = "reports:read"
	PermReportsUpdate Permission = "reports:update"
	PermReportsDelete Permission = "reports:delete"

	PermAnalyticsCreate Permission = "analytics:create"
	PermAnalyticsRead   Permission = "analytics:read"
	PermAnalyticsUpdate Permission = "analytics:update"
	PermAnalyticsDelete Permission = "analytics:delete"

	PermIncidentCreate  Permission = "incident:create"
	PermIncidentRead    Permission = "incident:read"
	PermIncidentUpdate  Permission = "incident:update"
	PermIncidentDelete  Permission = "incident:delete"
	PermIncidentAnalyze Permission = "incident:analyze"
)

// rolePermissions maps each role to its granted permissions.
// This is the single source of truth for the authorisation model:
// a flat table, fixed at init, with no inheritance between roles.
// Anything not listed is denied.
var rolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermOrganizationCreate,
		PermOrganizationRead,
		PermOrganizationUpdate,
		PermOrganizationDelete,
		PermMemberCreate,
		PermMemberRead,
		PermMemberUpdate,
		PermMemberDelete,
		PermTeamCreate,
		PermTeamRead,
		PermTeamUpdate,
		PermTeamDelete,
		PermInvitationCreate,
		PermInvitationRead,
		PermInvitationUpdate,
		PermInvitationDelete,
		PermInvitationCancel,
		PermReportsCreate,
		PermReportsRead,
		PermReportsUpdate,
		PermReportsDelete,
		PermAnalyticsCreate,
		PermAnalyticsRead,
		PermAnalyticsUpdate,
		PermAnalyticsDelete,
		PermIncidentCreate,
		PermIncidentRead,
		PermIncidentUpdate,
		PermIncidentDelete,
		PermIncidentAnalyze,
	},
	RoleAnalityk: {
		PermOrganizationRead,
		PermMemberRead,
		PermTeamRead,
		PermInvitationRead,
		PermReportsCreate,
		PermReportsRead,
		PermReportsUpdate,
		PermReportsDelete,
		PermAnalyticsCreate,
		PermAnalyticsRead,
		PermAnalyticsUpdate,
		PermIncidentRead,
		PermIncidentUpdate,
		PermIncidentAnalyze,
	},
	RolePracownik: {
		PermOrganizationRead,
		PermMemberRead,
		PermTeamRead,
		PermIncidentCreate,
		PermIncidentRead,
	},
}

// HasPermission returns true if the given role has the specified permission.
// Unknown roles have no permissions.
func HasPermission(role Role, perm Permission) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == perm {
			return true
		}
	}
	return false
}

// PermissionsForRole returns all permissions granted to a role.
// Returns nil for unknown roles.
func PermissionsForRole(role Role) []Permission {
	perms := rolePermissions[role]
	if perms == nil {
		return nil
	}
	result := make([]Permission, len(perms))
	copy(result, perms)
	return result
}
