package rbac

import (
	"context"
	"errors"
	"testing"
)

func TestParsePermission(t *testing.T) {
	cases := []struct {
		in   string
		want Permission
		ok   bool
	}{
		{"task:view", Permission{ResourceTask, ActionView}, true},
		{"task:*", Permission{ResourceTask, Wildcard}, true},
		{"*:view", Permission{Wildcard, ActionView}, true},
		{"*:*", Permission{Wildcard, Wildcard}, true},
		{"task", Permission{}, false},
		{"task:", Permission{}, false},
		{":view", Permission{}, false},
		{"spaceship:view", Permission{}, false},
		{"task:launch", Permission{}, false},
		{"", Permission{}, false},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("Parse(%q): unexpected error %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("Parse(%q) = %v, want %v", tc.in, got, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidPermission) {
			t.Fatalf("Parse(%q): expected ErrInvalidPermission, got %v", tc.in, err)
		}
	}
}

func TestSubsumes(t *testing.T) {
	taskView := Permission{ResourceTask, ActionView}
	cases := []struct {
		grant Permission
		req   Permission
		want  bool
	}{
		{taskView, taskView, true},
		{Permission{ResourceTask, Wildcard}, taskView, true},
		{Permission{Wildcard, ActionView}, taskView, true},
		{Permission{Wildcard, Wildcard}, taskView, true},
		{Permission{Wildcard, Wildcard}, Permission{ResourceSystem, ActionManage}, true},
		{taskView, Permission{ResourceTask, ActionDelete}, false},
		{taskView, Permission{ResourceProject, ActionView}, false},
		{Permission{ResourceTask, Wildcard}, Permission{ResourceProject, ActionView}, false},
		// Subsumption is directional: a specific grant never covers a
		// wildcard request.
		{taskView, Permission{ResourceTask, Wildcard}, false},
	}
	for _, tc := range cases {
		if got := tc.grant.Subsumes(tc.req); got != tc.want {
			t.Fatalf("%v.Subsumes(%v) = %v, want %v", tc.grant, tc.req, got, tc.want)
		}
	}
}

func TestSystemAdminBypassesEverything(t *testing.T) {
	table := NewTable(nil)
	admin := Principal{ID: "admin-1", Roles: []string{RoleSystemAdmin}}

	for _, perm := range []Permission{
		{ResourceTask, ActionDelete},
		{ResourceSystem, ActionManage},
		{ResourceRole, ActionCreate},
	} {
		if !table.HasPermission(admin, perm, nil) {
			t.Fatalf("system_admin denied %v", perm)
		}
	}
}

func TestOwnerAccess(t *testing.T) {
	table := NewTable(nil)
	viewer := Principal{ID: "user-1", Roles: []string{RoleViewer}}

	ownTask := &ResourceRef{Type: ResourceTask, CreatedBy: "user-1"}
	otherTask := &ResourceRef{Type: ResourceTask, CreatedBy: "user-2"}

	if !table.HasPermission(viewer, Permission{ResourceTask, ActionDelete}, ownTask) {
		t.Fatal("owner must be able to delete their own task")
	}
	if table.HasPermission(viewer, Permission{ResourceTask, ActionDelete}, otherTask) {
		t.Fatal("viewer must not delete another user's task")
	}
	if table.HasPermission(viewer, Permission{ResourceTask, ActionManage}, ownTask) {
		t.Fatal("manage is not owner-eligible")
	}
	if table.HasPermission(viewer, Permission{ResourceUser, ActionUpdate}, &ResourceRef{Type: ResourceUser, UserID: "user-1"}) {
		t.Fatal("user resources are not owner-eligible")
	}
}

func TestOwnerFieldPrecedence(t *testing.T) {
	cases := []struct {
		ref  ResourceRef
		want string
	}{
		{ResourceRef{CreatedBy: "a", OwnerID: "b", UserID: "c"}, "a"},
		{ResourceRef{OwnerID: "b", UserID: "c"}, "b"},
		{ResourceRef{UserID: "c"}, "c"},
		{ResourceRef{}, ""},
	}
	for _, tc := range cases {
		if got := tc.ref.Owner(); got != tc.want {
			t.Fatalf("Owner() = %q, want %q for %+v", got, tc.want, tc.ref)
		}
	}
}

func TestRoleUnionOrderIndependent(t *testing.T) {
	table := NewTable(nil)
	if err := table.CreateRole("task_admin", []Permission{{ResourceTask, Wildcard}}); err != nil {
		t.Fatalf("create role: %v", err)
	}

	perm := Permission{ResourceTask, ActionDelete}
	forward := Principal{ID: "u", Roles: []string{"viewer", "task_admin"}}
	backward := Principal{ID: "u", Roles: []string{"task_admin", "viewer"}}

	if !table.HasPermission(forward, perm, nil) || !table.HasPermission(backward, perm, nil) {
		t.Fatal("grant must not depend on role order")
	}
}

func TestUnknownRoleIgnored(t *testing.T) {
	table := NewTable(nil)
	p := Principal{ID: "u", Roles: []string{"ghost_role", RoleViewer}}

	if !table.HasPermission(p, Permission{ResourceTask, ActionView}, nil) {
		t.Fatal("known role must still grant despite unknown sibling")
	}
	if table.HasPermission(p, Permission{ResourceTask, ActionDelete}, nil) {
		t.Fatal("unknown role must grant nothing")
	}
}

func TestSeededRoles(t *testing.T) {
	table := NewTable(nil)

	member := Principal{ID: "u", Roles: []string{RoleTeamMember}}
	if !table.HasPermission(member, Permission{ResourceTask, ActionCreate}, nil) {
		t.Fatal("team_member must create tasks")
	}
	if table.HasPermission(member, Permission{ResourceTask, ActionDelete}, nil) {
		t.Fatal("team_member must not delete arbitrary tasks")
	}

	viewer := Principal{ID: "u", Roles: []string{RoleViewer}}
	if !table.HasPermission(viewer, Permission{ResourceProject, ActionView}, nil) {
		t.Fatal("viewer must view projects")
	}
	if table.HasPermission(viewer, Permission{ResourceTask, ActionCreate}, nil) {
		t.Fatal("viewer must not create tasks")
	}
}

type staticUsage struct {
	inUse map[string]bool
	err   error
}

func (s staticUsage) RoleInUse(_ context.Context, name string) (bool, error) {
	return s.inUse[name], s.err
}

func TestRoleCRUD(t *testing.T) {
	table := NewTable(staticUsage{inUse: map[string]bool{"busy_role": true}})
	ctx := context.Background()

	if err := table.CreateRole("qa_lead", []Permission{{ResourceTask, Wildcard}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := table.CreateRole("qa_lead", nil); !errors.Is(err, ErrRoleExists) {
		t.Fatalf("expected ErrRoleExists, got %v", err)
	}
	if err := table.CreateRole("bad name!", nil); !errors.Is(err, ErrRoleNameInvalid) {
		t.Fatalf("expected ErrRoleNameInvalid, got %v", err)
	}

	if err := table.GrantPermission("qa_lead", Permission{ResourceComment, ActionView}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	role, ok := table.Role("qa_lead")
	if !ok || len(role.Permissions) != 2 {
		t.Fatalf("unexpected role state: %+v ok=%v", role, ok)
	}
	if err := table.RevokePermission("qa_lead", Permission{ResourceComment, ActionView}); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	if err := table.GrantPermission(RoleViewer, Permission{ResourceTask, ActionDelete}); !errors.Is(err, ErrSystemRole) {
		t.Fatalf("expected ErrSystemRole on grant, got %v", err)
	}
	if err := table.DeleteRole(ctx, RoleSystemAdmin); !errors.Is(err, ErrSystemRole) {
		t.Fatalf("expected ErrSystemRole on delete, got %v", err)
	}

	if err := table.CreateRole("busy_role", nil); err != nil {
		t.Fatalf("create busy: %v", err)
	}
	if err := table.DeleteRole(ctx, "busy_role"); !errors.Is(err, ErrRoleInUse) {
		t.Fatalf("expected ErrRoleInUse, got %v", err)
	}

	if err := table.DeleteRole(ctx, "qa_lead"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := table.DeleteRole(ctx, "qa_lead"); !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
}

func TestMembershipPredicates(t *testing.T) {
	table := NewTable(nil)

	p := Principal{ID: "u", Roles: []string{RoleTeamMember}, Organizations: []string{"org-1"}, Projects: []string{"proj-1"}}
	if !table.IsOrgMember(p, "org-1") || table.IsOrgMember(p, "org-2") {
		t.Fatal("org membership mismatch")
	}
	if !table.IsProjectMember(p, "proj-1") || table.IsProjectMember(p, "proj-2") {
		t.Fatal("project membership mismatch")
	}

	admin := Principal{ID: "a", Roles: []string{RoleSystemAdmin}}
	if !table.IsOrgMember(admin, "any-org") || !table.IsProjectMember(admin, "any-proj") {
		t.Fatal("system_admin must be an implicit member everywhere")
	}
}
