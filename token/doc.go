// Package token issues and validates the signed bearer tokens used by the
// authentication engine. Tokens are self-contained: the payload carries
// exactly jti, sub, roles, type, iat, and exp, and is signed with an
// Ed25519 key pair so that downstream validators only need the public key.
//
// Expired and tampered tokens fail with distinct errors ([ErrExpired] vs
// [ErrInvalid]) so callers can message users differently without leaking
// which check failed.
package token
