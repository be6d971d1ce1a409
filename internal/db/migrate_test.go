package db

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db, err := gorm.Open(gormmysql.New(gormmysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestSeedTasksIgnoresExistingNames(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("INSERT INTO `tasks`.*ON DUPLICATE KEY UPDATE").
		WillReturnResult(sqlmock.NewResult(1, 2))

	n, err := SeedTasks(db, DefaultTasks)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Zero(t, DefaultTasks[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedTasksPropagatesErrors(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("INSERT INTO `tasks`").WillReturnError(errors.New("table missing"))

	_, err := SeedTasks(db, DefaultTasks)
	assert.ErrorContains(t, err, "table missing")
}

func TestSeedTasksEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	n, err := SeedTasks(db, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
