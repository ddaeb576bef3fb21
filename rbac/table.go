package rbac

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrRoleExists is returned when creating a role whose name is taken.
	ErrRoleExists = errors.New("role already exists")
	// ErrRoleNotFound is returned for lookups of unknown roles.
	ErrRoleNotFound = errors.New("role not found")
	// ErrSystemRole is returned for rename/delete/mutation attempts on a
	// seeded system role.
	ErrSystemRole = errors.New("system role is immutable")
	// ErrRoleInUse is returned when deleting a role that some principal
	// still references.
	ErrRoleInUse = errors.New("role is referenced by principals")
	// ErrRoleNameInvalid is returned for empty or non-alphanumeric role
	// names.
	ErrRoleNameInvalid = errors.New("role name must be alphanumeric or underscore")
)

// RoleUsage reports whether any principal currently references a role. The
// user record store implements it; deletion is refused while in use.
type RoleUsage interface {
	RoleInUse(ctx context.Context, roleName string) (bool, error)
}

// Table is the in-memory role→permission table. System roles are seeded at
// construction; custom roles may be added and removed afterwards under the
// table lock. Reads vastly outnumber writes, so evaluation takes only the
// read lock.
type Table struct {
	usage RoleUsage

	state tableState
}

type tableState struct {
	mu    sync.RWMutex
	roles map[string]*Role
}

// NewTable seeds the system roles and returns a ready table. usage may be
// nil, in which case DeleteRole refuses only system roles.
func NewTable(usage RoleUsage) *Table {
	t := &Table{usage: usage}
	t.state.roles = make(map[string]*Role, len(systemRoles))
	for name, perms := range systemRoles {
		role := &Role{Name: name, Permissions: make(map[Permission]struct{}, len(perms)), System: true}
		for _, p := range perms {
			role.Permissions[p] = struct{}{}
		}
		t.state.roles[name] = role
	}
	return t
}

// CreateRole registers a custom role with the given permission set.
func (t *Table) CreateRole(name string, perms []Permission) error {
	if !validRoleName(name) {
		return ErrRoleNameInvalid
	}

	t.state.mu.Lock()
	defer t.state.mu.Unlock()

	if _, exists := t.state.roles[name]; exists {
		return ErrRoleExists
	}

	role := &Role{Name: name, Permissions: make(map[Permission]struct{}, len(perms))}
	for _, p := range perms {
		role.Permissions[p] = struct{}{}
	}
	t.state.roles[name] = role
	return nil
}

// DeleteRole removes a custom role. System roles are refused outright, and
// a role still referenced by any principal is refused with [ErrRoleInUse].
func (t *Table) DeleteRole(ctx context.Context, name string) error {
	t.state.mu.RLock()
	role, ok := t.state.roles[name]
	t.state.mu.RUnlock()
	if !ok {
		return ErrRoleNotFound
	}
	if role.System {
		return ErrSystemRole
	}

	if t.usage != nil {
		inUse, err := t.usage.RoleInUse(ctx, name)
		if err != nil {
			return err
		}
		if inUse {
			return ErrRoleInUse
		}
	}

	t.state.mu.Lock()
	defer t.state.mu.Unlock()
	delete(t.state.roles, name)
	return nil
}

// GrantPermission adds a permission to a custom role.
func (t *Table) GrantPermission(name string, perm Permission) error {
	t.state.mu.Lock()
	defer t.state.mu.Unlock()

	role, ok := t.state.roles[name]
	if !ok {
		return ErrRoleNotFound
	}
	if role.System {
		return ErrSystemRole
	}
	role.Permissions[perm] = struct{}{}
	return nil
}

// RevokePermission removes a permission from a custom role.
func (t *Table) RevokePermission(name string, perm Permission) error {
	t.state.mu.Lock()
	defer t.state.mu.Unlock()

	role, ok := t.state.roles[name]
	if !ok {
		return ErrRoleNotFound
	}
	if role.System {
		return ErrSystemRole
	}
	delete(role.Permissions, perm)
	return nil
}

// Role returns a copy of the named role.
func (t *Table) Role(name string) (Role, bool) {
	t.state.mu.RLock()
	defer t.state.mu.RUnlock()

	role, ok := t.state.roles[name]
	if !ok {
		return Role{}, false
	}
	return role.clone(), true
}

// RoleNames returns every registered role name.
func (t *Table) RoleNames() []string {
	t.state.mu.RLock()
	defer t.state.mu.RUnlock()

	names := make([]string, 0, len(t.state.roles))
	for name := range t.state.roles {
		names = append(names, name)
	}
	return names
}

func validRoleName(name string) bool {
	if name == "" {
		return false
	}
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_':
		default:
			return false
		}
	}
	return true
}
