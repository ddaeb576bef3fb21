package rbac

import (
	"errors"
	"strings"
)

// Wildcard subsumes every value of the component it appears in. A
// permission of {*, *} subsumes everything.
const Wildcard = "*"

// Resource identifies a resource type ("task", "project", ...) or the
// wildcard.
type Resource string

// Action identifies an operation on a resource ("view", "delete", ...) or
// the wildcard.
type Action string

// Known resource types. The set is closed: permissions referencing other
// resources are rejected at parse time.
const (
	ResourceTask         Resource = "task"
	ResourceProject      Resource = "project"
	ResourceComment      Resource = "comment"
	ResourceAttachment   Resource = "attachment"
	ResourceUser         Resource = "user"
	ResourceOrganization Resource = "organization"
	ResourceRole         Resource = "role"
	ResourceSystem       Resource = "system"
)

// Known actions.
const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionManage Action = "manage"
)

var knownResources = map[Resource]struct{}{
	ResourceTask:         {},
	ResourceProject:      {},
	ResourceComment:      {},
	ResourceAttachment:   {},
	ResourceUser:         {},
	ResourceOrganization: {},
	ResourceRole:         {},
	ResourceSystem:       {},
}

var knownActions = map[Action]struct{}{
	ActionView:   {},
	ActionCreate: {},
	ActionUpdate: {},
	ActionDelete: {},
	ActionManage: {},
}

// ErrInvalidPermission is returned when a permission string does not parse
// into a known (resource, action) pair.
var ErrInvalidPermission = errors.New("invalid permission")

// Permission is a (resource, action) pair. Either component may be the
// wildcard.
type Permission struct {
	Resource Resource
	Action   Action
}

// Parse converts the "resource:action" wire form into a [Permission].
// "task:view", "task:*", "*:view", and "*:*" are all valid; unknown
// resources or actions are not.
func Parse(s string) (Permission, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Permission{}, ErrInvalidPermission
	}

	p := Permission{Resource: Resource(parts[0]), Action: Action(parts[1])}
	if p.Resource != Wildcard {
		if _, ok := knownResources[p.Resource]; !ok {
			return Permission{}, ErrInvalidPermission
		}
	}
	if p.Action != Wildcard {
		if _, ok := knownActions[p.Action]; !ok {
			return Permission{}, ErrInvalidPermission
		}
	}
	return p, nil
}

// String returns the "resource:action" wire form.
func (p Permission) String() string {
	return string(p.Resource) + ":" + string(p.Action)
}

// Subsumes reports whether a grant of p covers a request for other. A
// wildcard on either component matches every specific value of that
// component.
func (p Permission) Subsumes(other Permission) bool {
	if p.Resource != Wildcard && p.Resource != other.Resource {
		return false
	}
	if p.Action != Wildcard && p.Action != other.Action {
		return false
	}
	return true
}

// ownerEligible is the fixed permission set implicitly granted to the owner
// of a resource: view/update/delete of tasks, projects, comments, and
// attachments. User, organization, role, and system permissions are never
// owner-eligible.
var ownerEligible = map[Permission]struct{}{
	{ResourceTask, ActionView}:         {},
	{ResourceTask, ActionUpdate}:       {},
	{ResourceTask, ActionDelete}:       {},
	{ResourceProject, ActionView}:      {},
	{ResourceProject, ActionUpdate}:    {},
	{ResourceProject, ActionDelete}:    {},
	{ResourceComment, ActionView}:      {},
	{ResourceComment, ActionUpdate}:    {},
	{ResourceComment, ActionDelete}:    {},
	{ResourceAttachment, ActionView}:   {},
	{ResourceAttachment, ActionUpdate}: {},
	{ResourceAttachment, ActionDelete}: {},
}

// OwnerEligible reports whether p belongs to the owner-eligible set.
func OwnerEligible(p Permission) bool {
	_, ok := ownerEligible[p]
	return ok
}
