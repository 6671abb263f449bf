package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuforge/backend/internal/infrastructure/database"
)

func newMockTxManager(t *testing.T) (*TransactionManager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewTransactionManager(database.Wrap(db)), mock
}

func TestTransactionManagerWithRetryRecoversFromDeadlock(t *testing.T) {
	tm, mock := newMockTxManager(t)

	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	attempts := 0
	err := tm.WithRetry(func(tx *sql.Tx) error {
		attempts++
		if attempts == 1 {
			return errors.New("Error 1213: Deadlock found when trying to get lock")
		}
		return nil
	}, 3)

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionManagerWithRetryFailsFastOnOtherErrors(t *testing.T) {
	tm, mock := newMockTxManager(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	wantErr := errors.New("work item is already approved")
	attempts := 0
	err := tm.WithRetry(func(tx *sql.Tx) error {
		attempts++
		return wantErr
	}, 3)

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionManagerWithRetryExhaustsBudget(t *testing.T) {
	tm, mock := newMockTxManager(t)

	for i := 0; i < 3; i++ {
		mock.ExpectBegin()
		mock.ExpectRollback()
	}

	attempts := 0
	err := tm.WithRetry(func(tx *sql.Tx) error {
		attempts++
		return errors.New("Error 1205: Lock wait timeout exceeded")
	}, 3)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 retries")
	assert.Equal(t, 3, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionManagerWithTransactionContextCarriesTx(t *testing.T) {
	tm, mock := newMockTxManager(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE document SET status").
		WithArgs("approved", "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := tm.WithTransactionContext(context.Background(), func(txCtx context.Context) error {
		require.NotNil(t, tm.ExtractTx(txCtx))

		exec := tm.ExecutorFor(txCtx)
		_, execErr := exec.ExecContext(txCtx, "UPDATE document SET status = ? WHERE id = ?", "approved", "doc-1")
		return execErr
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
