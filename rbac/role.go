package rbac

// Role is a named permission set. System roles are seeded once at table
// construction and can never be renamed or deleted.
type Role struct {
	Name        string
	Permissions map[Permission]struct{}
	System      bool
}

// Seeded system role names. Lookup is always by name; role records carry no
// other identifier.
const (
	RoleSystemAdmin       = "system_admin"
	RoleOrganizationAdmin = "organization_admin"
	RoleProjectManager    = "project_manager"
	RoleTeamMember        = "team_member"
	RoleViewer            = "viewer"
)

// systemRoles is the authoritative role→permission table for seeded roles.
// It is copied into each new [Table]; the package-level map is never handed
// out.
var systemRoles = map[string][]Permission{
	RoleSystemAdmin: {
		{Wildcard, Wildcard},
	},
	RoleOrganizationAdmin: {
		{ResourceOrganization, ActionView},
		{ResourceOrganization, ActionUpdate},
		{ResourceOrganization, ActionManage},
		{ResourceUser, Wildcard},
		{ResourceProject, Wildcard},
		{ResourceTask, Wildcard},
		{ResourceComment, Wildcard},
		{ResourceAttachment, Wildcard},
	},
	RoleProjectManager: {
		{ResourceProject, ActionView},
		{ResourceProject, ActionCreate},
		{ResourceProject, ActionUpdate},
		{ResourceProject, ActionManage},
		{ResourceTask, Wildcard},
		{ResourceComment, Wildcard},
		{ResourceAttachment, Wildcard},
		{ResourceUser, ActionView},
	},
	RoleTeamMember: {
		{ResourceProject, ActionView},
		{ResourceTask, ActionView},
		{ResourceTask, ActionCreate},
		{ResourceTask, ActionUpdate},
		{ResourceComment, ActionView},
		{ResourceComment, ActionCreate},
		{ResourceComment, ActionUpdate},
		{ResourceAttachment, ActionView},
		{ResourceAttachment, ActionCreate},
		{ResourceUser, ActionView},
	},
	RoleViewer: {
		{ResourceProject, ActionView},
		{ResourceTask, ActionView},
		{ResourceComment, ActionView},
		{ResourceAttachment, ActionView},
		{ResourceUser, ActionView},
	},
}

// SystemRoleNames returns the seeded role names.
func SystemRoleNames() []string {
	return []string{
		RoleSystemAdmin,
		RoleOrganizationAdmin,
		RoleProjectManager,
		RoleTeamMember,
		RoleViewer,
	}
}

func (r *Role) clone() Role {
	perms := make(map[Permission]struct{}, len(r.Permissions))
	for p := range r.Permissions {
		perms[p] = struct{}{}
	}
	return Role{Name: r.Name, Permissions: perms, System: r.System}
}
