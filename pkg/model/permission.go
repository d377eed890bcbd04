package model

// Permission is a registry entry persisted so that roles can reference it.
type Permission struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:100;uniqueIndex;not null"`
	Description string
}

func (Permission) TableName() string {
	return "permissions"
}
