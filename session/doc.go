// Package session tracks active sessions per principal for introspection
// and mass invalidation. A session is a weak back-reference from a
// principal to one outstanding refresh token; it is created on login,
// replaced on refresh rotation, and deleted on logout or password change.
// Records expire with their refresh token, so the registry never outlives
// the credentials it describes.
package session
