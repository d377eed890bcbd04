package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditMessage is an audit event persisted to the database.
type AuditMessage struct {
	ID             uint `gorm:"primaryKey"`
	Facility       int
	Severity       int
	Timestamp      time.Time
	Hostname       string
	AppName        string
	ProcID         string
	MsgID          string
	StructuredData datatypes.JSON
	Message        string
}

func (AuditMessage) TableName() string {
	return "audit_messages"
}
