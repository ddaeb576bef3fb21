package rbac

// Principal is the identity every authorization decision runs against. It
// is immutable for the duration of a request; role assignments change only
// through explicit management operations on the backing user store.
type Principal struct {
	ID            string
	Roles         []string
	Organizations []string
	Projects      []string
}

// ResourceRef carries the ownership fields of a concrete resource instance.
// Owner fields are checked in fixed precedence: CreatedBy, then OwnerID,
// then UserID.
type ResourceRef struct {
	Type      Resource
	CreatedBy string
	OwnerID   string
	UserID    string
}

// Owner returns the owning principal ID under the field precedence, or ""
// when no owner field is set.
func (r ResourceRef) Owner() string {
	if r.CreatedBy != "" {
		return r.CreatedBy
	}
	if r.OwnerID != "" {
		return r.OwnerID
	}
	return r.UserID
}

// HasPermission resolves whether the principal may perform perm, optionally
// against a concrete resource. resource may be nil for type-level checks.
//
// The decision is a union, not a priority list: any single satisfied rule
// grants, and role iteration order never changes the outcome.
func (t *Table) HasPermission(p Principal, perm Permission, resource *ResourceRef) bool {
	if t.HasRole(p, RoleSystemAdmin) {
		return true
	}

	if resource != nil && resource.Owner() != "" && resource.Owner() == p.ID && OwnerEligible(perm) {
		return true
	}

	t.state.mu.RLock()
	defer t.state.mu.RUnlock()

	for _, name := range p.Roles {
		role, ok := t.state.roles[name]
		if !ok {
			continue
		}
		for granted := range role.Permissions {
			if granted.Subsumes(perm) {
				return true
			}
		}
	}
	return false
}

// HasRole reports whether the principal holds the named role.
func (t *Table) HasRole(p Principal, name string) bool {
	for _, r := range p.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// IsProjectMember reports project membership. system_admin is implicitly a
// member of every project.
func (t *Table) IsProjectMember(p Principal, projectID string) bool {
	if t.HasRole(p, RoleSystemAdmin) {
		return true
	}
	for _, id := range p.Projects {
		if id == projectID {
			return true
		}
	}
	return false
}

// IsOrgMember reports organization membership. system_admin is implicitly a
// member of every organization.
func (t *Table) IsOrgMember(p Principal, orgID string) bool {
	if t.HasRole(p, RoleSystemAdmin) {
		return true
	}
	for _, id := range p.Organizations {
		if id == orgID {
			return true
		}
	}
	return false
}
