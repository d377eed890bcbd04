package gorm

import (
	"context"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/saasgate/pkg/model"
	"github.com/doodlesbykumbi/saasgate/pkg/server/store"
)

// Ensure RolesStore implements store.RolesStore
var _ store.RolesStore = (*RolesStore)(nil)

// RolesStore implements store.RolesStore using GORM
type RolesStore struct {
	db *gorm.DB
}

// NewRolesStore creates a new RolesStore
func NewRolesStore(db *gorm.DB) *RolesStore {
	return &RolesStore{db: db}
}

func orderedPermissions(db *gorm.DB) *gorm.DB {
	return db.Order("name")
}

// CreateRole inserts a role and its permission grants in one transaction
func (s *RolesStore) CreateRole(ctx context.Context, role *model.Role) error {
	return translate(s.db.WithContext(ctx).Create(role).Error)
}

// FetchRole retrieves a role with its permissions
func (s *RolesStore) FetchRole(ctx context.Context, id uint) (*model.Role, error) {
	var role model.Role
	err := s.db.WithContext(ctx).Preload("Permissions", orderedPermissions).First(&role, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

// FetchRoleByName retrieves a role with its permissions by name
func (s *RolesStore) FetchRoleByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	err := s.db.WithContext(ctx).
		Preload("Permissions", orderedPermissions).
		Where("name = ?", name).
		First(&role).Error
	if err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

// ListRoles returns a page of roles with their permissions
func (s *RolesStore) ListRoles(ctx context.Context, offset, limit int) ([]model.Role, error) {
	var roles []model.Role
	err := s.db.WithContext(ctx).
		Preload("Permissions", orderedPermissions).
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&roles).Error
	return roles, err
}

// UpdateRole saves name and description and optionally replaces the
// permission set
func (s *RolesStore) UpdateRole(ctx context.Context, role *model.Role, permissions []model.Permission) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(role).Select("name", "description").Updates(role)
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		if permissions == nil {
			return nil
		}

		assoc := tx.Model(role).Association("Permissions")
		if len(permissions) == 0 {
			if err := assoc.Clear(); err != nil {
				return err
			}
			role.Permissions = []model.Permission{}
			return nil
		}
		if err := assoc.Replace(permissions); err != nil {
			return err
		}
		role.Permissions = permissions
		return nil
	})
}

// DeleteRole removes a role and its association rows
func (s *RolesStore) DeleteRole(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM role_permissions WHERE role_id = ?`, id).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM user_roles WHERE role_id = ?`, id).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Role{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

// AddRolePermission grants a permission to a role
func (s *RolesStore) AddRolePermission(ctx context.Context, roleID, permissionID uint) error {
	return s.db.WithContext(ctx).Exec(`
		INSERT INTO role_permissions (role_id, permission_id)
		VALUES (?, ?)
		ON CONFLICT DO NOTHING
	`, roleID, permissionID).Error
}

// RemoveRolePermission revokes a permission from a role
func (s *RolesStore) RemoveRolePermission(ctx context.Context, roleID, permissionID uint) error {
	return s.db.WithContext(ctx).Exec(
		`DELETE FROM role_permissions WHERE role_id = ? AND permission_id = ?`,
		roleID, permissionID,
	).Error
}

// AddUserRole assigns a role to a user
func (s *RolesStore) AddUserRole(ctx context.Context, userID, roleID uint) error {
	return s.db.WithContext(ctx).Exec(`
		INSERT INTO user_roles (user_id, role_id)
		VALUES (?, ?)
		ON CONFLICT DO NOTHING
	`, userID, roleID).Error
}

// RemoveUserRole unassigns a role from a user
func (s *RolesStore) RemoveUserRole(ctx context.Context, userID, roleID uint) error {
	return s.db.WithContext(ctx).Exec(
		`DELETE FROM user_roles WHERE user_id = ? AND role_id = ?`,
		userID, roleID,
	).Error
}
