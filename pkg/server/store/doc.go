// Package store provides storage abstractions for the saasgate server.
//
// This package defines interfaces for database operations, allowing the
// server endpoints to be decoupled from the specific database implementation.
// The GORM implementations live in the gorm subpackage.
//
// # Available Stores
//
//   - UsersStore: user accounts
//   - RolesStore: roles, role-permission grants and user-role assignments
//   - PermissionsStore: persisted permission registry entries
//   - PaymentsStore: payments with conditional status transitions
//   - HealthStore: connectivity checks
//
// # Errors
//
// Implementations return ErrNotFound and ErrConflict, possibly wrapped:
//
//	role, err := roles.FetchRole(ctx, id)
//	if errors.Is(err, store.ErrNotFound) {
//	    // 404
//	}
package store
