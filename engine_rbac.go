package authkit

import (
	"context"

	"github.com/taskhive/authkit/rbac"
)

// HasPermission resolves whether the principal may perform perm, optionally
// against a concrete resource for ownership checks. resource may be nil.
func (e *Engine) HasPermission(p Principal, perm rbac.Permission, resource *rbac.ResourceRef) bool {
	return e.roles.HasPermission(p, perm, resource)
}

// HasRole reports whether the principal holds the named role.
func (e *Engine) HasRole(p Principal, roleName string) bool {
	return e.roles.HasRole(p, roleName)
}

// IsProjectMember reports project membership, with system_admin implicitly
// a member of every project.
func (e *Engine) IsProjectMember(p Principal, projectID string) bool {
	return e.roles.IsProjectMember(p, projectID)
}

// IsOrgMember reports organization membership, with system_admin implicitly
// a member of every organization.
func (e *Engine) IsOrgMember(p Principal, orgID string) bool {
	return e.roles.IsOrgMember(p, orgID)
}

// CreateRole registers a custom role.
func (e *Engine) CreateRole(name string, perms []rbac.Permission) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	return e.roles.CreateRole(name, perms)
}

// DeleteRole removes a custom role. System roles are refused, as is any
// role still referenced by a principal.
func (e *Engine) DeleteRole(ctx context.Context, name string) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	return e.roles.DeleteRole(ctx, name)
}

// GrantPermission adds a permission to a custom role.
func (e *Engine) GrantPermission(roleName string, perm rbac.Permission) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	return e.roles.GrantPermission(roleName, perm)
}

// RevokePermission removes a permission from a custom role.
func (e *Engine) RevokePermission(roleName string, perm rbac.Permission) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	return e.roles.RevokePermission(roleName, perm)
}

// Role returns a copy of the named role.
func (e *Engine) Role(name string) (rbac.Role, bool) {
	return e.roles.Role(name)
}

// RoleNames returns every registered role name.
func (e *Engine) RoleNames() []string {
	return e.roles.RoleNames()
}
