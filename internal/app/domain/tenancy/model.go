// Package tenancy models the three-tier hierarchy apps live in:
// organization -> space -> app. Role memberships over principals hang off
// spaces and organizations and drive visibility scoping.
package tenancy

import "time"

// Organization is the top-tier tenancy boundary.
type Organization struct {
	GUID      string
	Name      string
	CreatedAt time.Time
}

// Space is the mid-tier grouping of apps, scoped under an organization.
type Space struct {
	GUID             string
	OrganizationGUID string
	Name             string
	CreatedAt        time.Time
}

// Role names a grant a principal can hold on a space or an organization.
type Role string

const (
	RoleSpaceDeveloper Role = "space_developer"
	RoleSpaceManager   Role = "space_manager"
	RoleSpaceAuditor   Role = "space_auditor"
	RoleOrgManager     Role = "organization_manager"
)

// SpaceRoles enumerates the roles granted at space scope.
var SpaceRoles = []Role{RoleSpaceDeveloper, RoleSpaceManager, RoleSpaceAuditor}
