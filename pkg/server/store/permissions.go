package store

import (
	"context"

	"github.com/doodlesbykumbi/saasgate/pkg/model"
)

// PermissionsStore abstracts storage of persisted registry entries
type PermissionsStore interface {
	// CreatePermission inserts a permission row.
	// Returns ErrConflict if the name is already persisted.
	CreatePermission(ctx context.Context, perm *model.Permission) error

	// FetchPermission retrieves a permission by ID.
	// Returns ErrNotFound if it doesn't exist.
	FetchPermission(ctx context.Context, id uint) (*model.Permission, error)

	// EnsurePermissions returns the rows for names, creating any that are
	// missing with their registry descriptions. Names must be validated
	// against the registry first.
	EnsurePermissions(ctx context.Context, names []string) ([]model.Permission, error)

	// ListPermissions returns permissions ordered by ID.
	ListPermissions(ctx context.Context, offset, limit int) ([]model.Permission, error)
}
