// Package permission is the registry of permission names understood by saasgate.
//
// A permission is a namespaced "resource:action" string. The registry is the
// single source of truth: only registered names can be granted to roles or
// required by a route.
//
// # Named Permissions
//
//   - rbac:manage: manage roles and their permissions
//   - users:read: read every user's data
//   - users:manage: create, edit and delete users
//   - reports:view: view admin reports
//   - payments:create: create and verify payments
//   - payments:manage: capture and refund payments
//
// # Inferred Permissions
//
// Routes that do not name a permission derive one from the request:
//
//	perm, ok := permission.Infer("GET", "/api/v1/profiles/42")
//	// perm == "profiles:read", ok == true
//
// The resource is the third path segment and the action comes from the HTTP
// method. The registry carries the CRUD names for every resource that is
// guarded this way.
package permission
