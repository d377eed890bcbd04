package model

import (
	"time"

	"github.com/doodlesbykumbi/saasgate/pkg/permission"
)

// User is an account that can authenticate against the API.
type User struct {
	ID             uint   `gorm:"primaryKey"`
	Email          string `gorm:"size:320;uniqueIndex;not null"`
	HashedPassword string `gorm:"size:1024;not null"`
	IsActive       bool   `gorm:"not null"`
	IsSuperuser    bool   `gorm:"not null"`
	IsVerified     bool   `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Roles []Role `gorm:"many2many:user_roles;constraint:OnDelete:CASCADE"`
}

func (User) TableName() string {
	return "users"
}

// EffectivePermissions is the union of the permissions of every role the
// user holds. Roles must be loaded with their permissions.
func (u *User) EffectivePermissions() permission.Set {
	s := permission.NewSet()
	for i := range u.Roles {
		s.Union(u.Roles[i].PermissionSet())
	}
	return s
}
