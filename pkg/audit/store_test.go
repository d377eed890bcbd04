package audit

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/doodlesbykumbi/saasgate/pkg/logging"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open gorm: %v", err)
	}
	return NewStore(gormDB), mock
}

func TestStoreSave(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "audit_messages"`).
		WithArgs(
			FacilityAuthPriv,      // facility
			int(SeverityNotice),   // severity
			sqlmock.AnyArg(),      // timestamp
			sqlmock.AnyArg(),      // hostname
			"saasgate",            // app_name
			sqlmock.AnyArg(),      // proc_id
			"rbac",                // msg_id
			sqlmock.AnyArg(),      // structured_data
			sqlmock.AnyArg(),      // message
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := store.Save(RBACEvent{
		User:      "admin@example.com",
		Operation: OpAssignRole,
		Target:    "user:2 role:1",
		Success:   true,
	}, time.Now().UTC())
	if err != nil {
		t.Errorf("Save() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestLoggerKeepsWritingWhenStoreFails(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "audit_messages"`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	var buf bytes.Buffer
	logger := NewLogger().SetWriter(&buf).SetStore(store).SetErrorLogger(logging.Discard())

	logger.Log(PasswordEvent{Email: "a@example.com", Operation: "change", Success: true})

	if !strings.Contains(buf.String(), "password") {
		t.Errorf("expected event to be written, got %q", buf.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreRecent(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "facility", "severity", "timestamp", "msg_id", "message"}).
		AddRow(2, FacilityAuthPriv, int(SeverityWarning), time.Now(), "check", "denied").
		AddRow(1, FacilityAuthPriv, int(SeverityWarning), time.Now(), "check", "denied")
	mock.ExpectQuery(`SELECT \* FROM "audit_messages" WHERE msg_id = \$1 ORDER BY timestamp DESC,\s?id DESC LIMIT`).
		WillReturnRows(rows)

	messages, err := store.Recent(context.Background(), "check", 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(messages) != 2 || messages[0].ID != 2 {
		t.Errorf("unexpected messages: %+v", messages)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
