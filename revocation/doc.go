// Package revocation maintains the shared TTL denylist of token IDs (jti)
// consulted on every token validation. Entries live exactly as long as the
// revoked token could otherwise remain valid; the store never accumulates
// expired entries.
//
// Availability policy: when the backend is unreachable, IsRevoked defaults
// to fail-open (treat the token as not revoked) so that an outage degrades
// security checks rather than all traffic. Deployments preferring
// fail-closed set FailOpen to false and receive ErrUnavailable instead.
// Either way the decision is observable: fail-open hits invoke the
// configured observer so they land in logs and metrics, never silently.
//
// CheckAndRevoke is the single-winner primitive behind refresh rotation: a
// SET NX with TTL performs "check not revoked + revoke" as one atomic
// operation, and always fails closed because a rotation that cannot burn
// its input token must not mint a new pair.
package revocation
