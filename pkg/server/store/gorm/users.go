package gorm

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/doodlesbykumbi/saasgate/pkg/model"
	"github.com/doodlesbykumbi/saasgate/pkg/server/store"
)

// Ensure UsersStore implements store.UsersStore
var _ store.UsersStore = (*UsersStore)(nil)

// UsersStore implements store.UsersStore using GORM
type UsersStore struct {
	db *gorm.DB
}

// NewUsersStore creates a new UsersStore
func NewUsersStore(db *gorm.DB) *UsersStore {
	return &UsersStore{db: db}
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser inserts a user without touching associations
func (s *UsersStore) CreateUser(ctx context.Context, user *model.User) error {
	user.Email = NormalizeEmail(user.Email)
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error)
}

// FetchUser retrieves a user with roles and their permissions
func (s *UsersStore) FetchUser(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Preload("Roles.Permissions").First(&user, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FetchUserByEmail retrieves a user by email with roles and their permissions
func (s *UsersStore) FetchUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).
		Preload("Roles.Permissions").
		Where("email = ?", NormalizeEmail(email)).
		First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// ListUsers returns a page of users with their roles
func (s *UsersStore) ListUsers(ctx context.Context, offset, limit int) ([]model.User, error) {
	var users []model.User
	err := s.db.WithContext(ctx).
		Preload("Roles").
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&users).Error
	return users, err
}

// UpdateUser saves the user's columns, including zero values
func (s *UsersStore) UpdateUser(ctx context.Context, user *model.User) error {
	user.Email = NormalizeEmail(user.Email)
	user.UpdatedAt = time.Now()
	res := s.db.WithContext(ctx).
		Model(user).
		Select("email", "hashed_password", "is_active", "is_superuser", "is_verified", "updated_at").
		Updates(user)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteUser removes a user and its role assignments
func (s *UsersStore) DeleteUser(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM user_roles WHERE user_id = ?`, id).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}
