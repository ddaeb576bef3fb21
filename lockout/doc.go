// Package lockout tracks consecutive failed login attempts per principal
// and enforces timed account locks. The increment and the lock transition
// happen in one Lua script, so two concurrent failures can never under-count
// and delay the lock. The lock clears itself through Redis TTL expiry; no
// explicit unlock write is needed for the timed transition back to active.
package lockout
