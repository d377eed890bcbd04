package gorm

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	gormdb "gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestHealthStore_CheckConnectivity(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	gdb, err := gormdb.Open(postgres.New(postgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gormdb.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	s := NewHealthStore(gdb)

	t.Run("database reachable", func(t *testing.T) {
		mock.ExpectExec("SELECT 1").WillReturnResult(sqlmock.NewResult(0, 0))
		assert.NoError(t, s.CheckConnectivity(context.Background()))
	})

	t.Run("database down", func(t *testing.T) {
		mock.ExpectExec("SELECT 1").WillReturnError(errors.New("connection refused"))
		assert.Error(t, s.CheckConnectivity(context.Background()))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
