// Package identity resolves request credentials into users, sessions,
// organizations, and memberships.
//
// The package exposes a small Provider interface consumed by the
// authorization layer, plus SQLite-backed repositories for the underlying
// rows. Credentials are opaque session tokens (stored as SHA-256 hashes)
// or short-lived signed JWT access tokens bound to a stored session.
//
// Resolution semantics:
//   - Missing, malformed, or expired credentials resolve to (nil, nil).
//   - Storage faults return an error; callers must fail closed.
//
// Session issuance (login) is handled by an external identity service.
// This package only reads sessions and exchanges a valid session for a
// signed access token.
package identity
