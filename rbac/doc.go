// Package rbac resolves whether a principal may perform an action on a
// resource type. Permissions are typed (resource, action) pairs with
// wildcard subsumption; the role→permission table is seeded once at engine
// build time and is the single source of truth for every decision.
//
// Grant precedence, in order: the system_admin role grants unconditionally;
// resource ownership grants the fixed owner-eligible permission set; then
// the union of the principal's role permission sets decides. Role iteration
// order never affects the result.
package rbac
