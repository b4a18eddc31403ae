// Package authz implements role-based authorization for the incident API.
//
// It has three parts:
//
//   - A static role model: three member roles (admin, analityk, pracownik)
//     mapped to "resource:action" permissions in a flat table fixed at
//     process start. Anything not listed is denied.
//   - A session resolver wrapping the identity provider, with strict and
//     lenient modes.
//   - The Gate: composable HTTP middleware (RequireAuth, OptionalAuth,
//     RequireOrganization, RequireRole, RequireOwnership) that attach
//     immutable values to the request context and fail closed on provider
//     faults.
//
// The gate performs no writes and holds no per-request state outside the
// request context, so checks compose in any order and repeat safely.
package authz
