package audit

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/saasgate/pkg/model"
)

// Store persists audit events to the audit_messages table
type Store struct {
	db       *gorm.DB
	hostname string
	procID   string
}

// NewStore creates a store on an existing database connection
func NewStore(db *gorm.DB) *Store {
	hostname, _ := os.Hostname()
	return &Store{
		db:       db,
		hostname: hostname,
		procID:   strconv.Itoa(os.Getpid()),
	}
}

// Save persists an audit event to the database
func (s *Store) Save(event Event, at time.Time) error {
	sdata, err := json.Marshal(event.StructuredData())
	if err != nil {
		return err
	}

	return s.db.Create(&model.AuditMessage{
		Facility:       event.Facility(),
		Severity:       int(event.Severity()),
		Timestamp:      at,
		Hostname:       s.hostname,
		AppName:        appName,
		ProcID:         s.procID,
		MsgID:          event.MessageID(),
		StructuredData: sdata,
		Message:        event.Message(),
	}).Error
}

// Recent returns the newest audit messages first, optionally filtered by
// message ID.
func (s *Store) Recent(ctx context.Context, msgID string, limit int) ([]model.AuditMessage, error) {
	var messages []model.AuditMessage
	q := s.db.WithContext(ctx).Order("timestamp DESC").Order("id DESC").Limit(limit)
	if msgID != "" {
		q = q.Where("msg_id = ?", msgID)
	}
	err := q.Find(&messages).Error
	return messages, err
}
