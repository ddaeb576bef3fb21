// Package mfa implements the multi-factor challenge state machine:
// LOGIN_SUCCESS → CHALLENGE_ISSUED → VERIFIED → challenge deleted.
// Challenges are strictly single use: verification deletes the record
// before any tokens are issued, so a correct code can never be replayed.
// Only the TOTP method carries a verification algorithm; SMS and email are
// enumerated for wire compatibility and return a not-implemented error.
package mfa
