package store

import (
	"context"

	"github.com/doodlesbykumbi/saasgate/pkg/model"
)

// RolesStore abstracts role storage and the role-permission and user-role
// associations
type RolesStore interface {
	// CreateRole inserts a role together with role.Permissions, which must
	// already exist. Returns ErrConflict if the name is taken.
	CreateRole(ctx context.Context, role *model.Role) error

	// FetchRole retrieves a role with its permissions.
	// Returns ErrNotFound if the role doesn't exist.
	FetchRole(ctx context.Context, id uint) (*model.Role, error)

	// FetchRoleByName retrieves a role with its permissions by exact name.
	// Returns ErrNotFound if the role doesn't exist.
	FetchRoleByName(ctx context.Context, name string) (*model.Role, error)

	// ListRoles returns roles ordered by ID, with their permissions.
	ListRoles(ctx context.Context, offset, limit int) ([]model.Role, error)

	// UpdateRole saves name and description. When permissions is non-nil it
	// replaces the role's permission set in the same transaction.
	// Returns ErrConflict if the new name is taken.
	UpdateRole(ctx context.Context, role *model.Role, permissions []model.Permission) error

	// DeleteRole removes a role and every association row referencing it.
	// Returns ErrNotFound if the role doesn't exist.
	DeleteRole(ctx context.Context, id uint) error

	// AddRolePermission grants a permission to a role. Idempotent.
	AddRolePermission(ctx context.Context, roleID, permissionID uint) error

	// RemoveRolePermission revokes a permission from a role. Idempotent.
	RemoveRolePermission(ctx context.Context, roleID, permissionID uint) error

	// AddUserRole assigns a role to a user. Idempotent.
	AddUserRole(ctx context.Context, userID, roleID uint) error

	// RemoveUserRole unassigns a role from a user. Idempotent.
	RemoveUserRole(ctx context.Context, userID, roleID uint) error
}
