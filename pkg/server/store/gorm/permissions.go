package gorm

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/doodlesbykumbi/saasgate/pkg/model"
	"github.com/doodlesbykumbi/saasgate/pkg/permission"
	"github.com/doodlesbykumbi/saasgate/pkg/server/store"
)

// Ensure PermissionsStore implements store.PermissionsStore
var _ store.PermissionsStore = (*PermissionsStore)(nil)

// PermissionsStore implements store.PermissionsStore using GORM
type PermissionsStore struct {
	db *gorm.DB
}

// NewPermissionsStore creates a new PermissionsStore
func NewPermissionsStore(db *gorm.DB) *PermissionsStore {
	return &PermissionsStore{db: db}
}

// CreatePermission inserts a permission row
func (s *PermissionsStore) CreatePermission(ctx context.Context, perm *model.Permission) error {
	return translate(s.db.WithContext(ctx).Create(perm).Error)
}

// FetchPermission retrieves a permission by ID
func (s *PermissionsStore) FetchPermission(ctx context.Context, id uint) (*model.Permission, error) {
	var perm model.Permission
	if err := s.db.WithContext(ctx).First(&perm, id).Error; err != nil {
		return nil, translate(err)
	}
	return &perm, nil
}

// EnsurePermissions gets or creates the rows for names
func (s *PermissionsStore) EnsurePermissions(ctx context.Context, names []string) ([]model.Permission, error) {
	perms := []model.Permission{}
	if len(names) == 0 {
		return perms, nil
	}

	rows := make([]model.Permission, 0, len(names))
	for _, name := range names {
		desc, _ := permission.Describe(name)
		rows = append(rows, model.Permission{Name: name, Description: desc})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&rows).Error; err != nil {
			return err
		}
		return tx.Where("name IN ?", names).Order("name").Find(&perms).Error
	})
	if err != nil {
		return nil, err
	}
	return perms, nil
}

// ListPermissions returns a page of permissions
func (s *PermissionsStore) ListPermissions(ctx context.Context, offset, limit int) ([]model.Permission, error) {
	var perms []model.Permission
	err := s.db.WithContext(ctx).Order("id").Offset(offset).Limit(limit).Find(&perms).Error
	return perms, err
}
