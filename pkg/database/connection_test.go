package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiv91/intimshopbot/pkg/logger"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return Wrap(db, logger.Discard()), mock
}

func TestBuildConnectionString(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Password = "secret"
	assert.Equal(t, "host=localhost port=5432 user=postgres password=secret dbname=storebot sslmode=disable", cfg.BuildConnectionString())
}

func TestHealthCheck(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectPing()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	assert.NoError(t, db.HealthCheck(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheckPingFailure(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	assert.Error(t, db.HealthCheck(context.Background()))
}

func TestExecuteInTransactionCommits(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bot_sessions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := db.ExecuteInTransaction(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec("UPDATE bot_sessions SET data = '{}'")
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteInTransactionRollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := db.ExecuteInTransaction(context.Background(), func(*sql.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteInTransactionRollsBackOnPanic(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = db.ExecuteInTransaction(context.Background(), func(*sql.Tx) error { panic("bad") })
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteInTransactionCommitFailure(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	err := db.ExecuteInTransaction(context.Background(), func(*sql.Tx) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit")
}
