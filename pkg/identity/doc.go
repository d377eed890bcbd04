// Package identity carries the authenticated user through a request.
//
// The authentication middleware resolves the bearer token, loads the user
// with its roles and their permissions, and stores an Identity in the
// request context. Handlers and the authorization guard read it back.
//
// # Basic Usage
//
//	id := identity.FromUser(user).
//	    WithToken(claims.ID, claims.IssuedAt.Time, claims.ExpiresAt.Time).
//	    WithRemoteIP(clientIP)
//	ctx = identity.Set(ctx, id)
//
//	id, ok := identity.Get(ctx)
//	if ok && id.Has(permission.UsersRead) {
//	    ...
//	}
//
// Permissions are computed from the roles loaded for this request only;
// nothing is cached across requests, so a role change takes effect on the
// next request.
package identity
