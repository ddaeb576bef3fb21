// Package authkit is an embeddable authentication and authorization engine
// for multi-tenant task management backends.
//
// The engine covers token issuance and validation (Ed25519-signed JWTs with
// rotate-and-burn refresh tokens), credential verification with automatic
// lockout, TOTP-based multi-factor login, session tracking, and role-based
// permission evaluation with wildcard and ownership rules.
//
// State that must be shared across instances, lockout counters, the
// revocation denylist, sessions, and MFA challenges, lives in Redis. User
// records stay in the caller's store behind the [UserProvider] interface.
//
// Construct an engine with the builder:
//
//	engine, err := authkit.New().
//		WithConfig(cfg).
//		WithRedis(redisClient).
//		WithUserProvider(provider).
//		Build()
package authkit
