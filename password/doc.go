// Package password provides argon2id credential hashing in PHC string
// format plus the password strength policy enforced on every password set.
// Verification is constant time and never errors on a simple mismatch.
package password
