package model

import "github.com/doodlesbykumbi/saasgate/pkg/permission"

// Role is a named group of permissions.
type Role struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:100;uniqueIndex;not null"`
	Description string

	Permissions []Permission `gorm:"many2many:role_permissions;constraint:OnDelete:CASCADE"`
}

func (Role) TableName() string {
	return "roles"
}

// PermissionSet returns the names of the permissions granted to the role.
func (r *Role) PermissionSet() permission.Set {
	s := permission.NewSet()
	for _, p := range r.Permissions {
		s.Add(p.Name)
	}
	return s
}
