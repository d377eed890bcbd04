package store

import (
	"context"

	"github.com/doodlesbykumbi/saasgate/pkg/model"
)

// UsersStore abstracts user storage operations
type UsersStore interface {
	// CreateUser inserts a user. Returns ErrConflict if the email is taken.
	CreateUser(ctx context.Context, user *model.User) error

	// FetchUser retrieves a user with roles and their permissions.
	// Returns ErrNotFound if the user doesn't exist.
	FetchUser(ctx context.Context, id uint) (*model.User, error)

	// FetchUserByEmail retrieves a user by case-insensitive email, with
	// roles and their permissions. Returns ErrNotFound if absent.
	FetchUserByEmail(ctx context.Context, email string) (*model.User, error)

	// ListUsers returns users ordered by ID, with their roles.
	ListUsers(ctx context.Context, offset, limit int) ([]model.User, error)

	// UpdateUser saves the user's columns; associations are untouched.
	// Returns ErrConflict if the new email is taken.
	UpdateUser(ctx context.Context, user *model.User) error

	// DeleteUser removes a user and its role assignments.
	// Returns ErrNotFound if the user doesn't exist.
	DeleteUser(ctx context.Context, id uint) error
}
