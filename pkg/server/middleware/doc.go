// Package middleware contains the HTTP middleware that authenticates
// requests and enforces permissions.
//
// # Authentication
//
// Authenticator.Middleware accepts "Authorization: Bearer <jwt>" access
// tokens. The user is loaded with its roles and their permissions on every
// request; nothing is cached between requests, so a revoked role takes
// effect immediately. Failures answer 401 {"detail":"Unauthorized"}.
//
// # Authorization
//
// Authorizer has two modes:
//
//	Require(perm)    the route names its permission explicitly
//	Auto(override)   the permission is inferred from method and path
//
// Both deny with 403 and fail closed when no permission can be determined.
//
// # Panics
//
// Recoverer answers a panicking handler with the generic 500 body.
package middleware
