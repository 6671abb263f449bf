package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockOutboxRepo(t *testing.T) (*OutboxRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewOutboxRepository(db), mock
}

func TestOutboxRepositoryEnqueue(t *testing.T) {
	repo, mock := newMockOutboxRepo(t)

	mock.ExpectExec("INSERT INTO outbox_event").
		WithArgs(sqlmock.AnyArg(), "change.ingested", sqlmock.AnyArg(), OutboxStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := repo.Enqueue(context.Background(), repo.db, "change.ingested",
		map[string]string{"changeRequestId": "ch-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepositoryCleanupProcessed(t *testing.T) {
	repo, mock := newMockOutboxRepo(t)
	cutoff := time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("DELETE FROM outbox_event WHERE status").
		WithArgs(OutboxStatusProcessed, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed, err := repo.CleanupProcessed(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepositoryIncrementRetry(t *testing.T) {
	repo, mock := newMockOutboxRepo(t)

	mock.ExpectExec("UPDATE outbox_event SET retry_count").
		WithArgs(2, "handler unavailable", "ev-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.IncrementRetry(context.Background(), repo.db, "ev-1", 2, "handler unavailable")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
