package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuforge/backend/internal/domain/models"
)

func newMockChangeRepo(t *testing.T) (*ChangeRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewChangeRepository(db), mock
}

func TestChangeRepositoryInsert(t *testing.T) {
	repo, mock := newMockChangeRepo(t)

	mock.ExpectExec("INSERT INTO change_request").
		WithArgs(sqlmock.AnyArg(), "DF-0089", "dbo", "usp_GetCustomerOrders", "Stored Procedure",
			"Added pagination support", "jsmith", sqlmock.AnyArg(), sqlmock.AnyArg(), false, "new").
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := repo.Insert(context.Background(), repo.db, &models.ChangeRequest{
		TicketRef:  "DF-0089",
		SchemaName: "dbo",
		ObjectName: "usp_GetCustomerOrders",
		ObjectType: "Stored Procedure",
		Summary:    "Added pagination support",
		ChangedBy:  "jsmith",
		ChangeDate: time.Now(),
	})

	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRepositoryExistsByTicket(t *testing.T) {
	repo, mock := newMockChangeRepo(t)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("DF-0089", "usp_GetCustomerOrders").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.ExistsByTicket(context.Background(), "DF-0089", "usp_GetCustomerOrders")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("EN-0067", "usp_GetCustomerOrders").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	exists, err = repo.ExistsByTicket(context.Background(), "EN-0067", "usp_GetCustomerOrders")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func changeRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "ticket_ref", "schema_name", "object_name", "object_type", "summary",
		"changed_by", "change_date", "sql_source", "is_qa", "status", "error_message",
		"created_date", "last_modified_date",
	})
}

func TestChangeRepositoryGetByID(t *testing.T) {
	repo, mock := newMockChangeRepo(t)
	now := time.Now()

	mock.ExpectQuery("SELECT .* FROM change_request WHERE id").
		WithArgs("ch-1").
		WillReturnRows(changeRows().AddRow(
			"ch-1", "DF-0089", "dbo", "usp_GetCustomerOrders", "Stored Procedure", "Added pagination",
			"jsmith", now, "CREATE PROCEDURE ...", false, "new", nil, now, now))

	cr, err := repo.GetByID(context.Background(), "ch-1")
	require.NoError(t, err)
	assert.Equal(t, "DF-0089", cr.TicketRef)
	assert.Equal(t, models.ChangeStatusNew, cr.Status)
	assert.Nil(t, cr.Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRepositoryClaimNewSkipsLostRows(t *testing.T) {
	repo, mock := newMockChangeRepo(t)
	now := time.Now()

	mock.ExpectQuery("SELECT id FROM change_request WHERE status").
		WithArgs("new", 10).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ch-1").AddRow("ch-2"))

	// ch-1 claimed by a concurrent sweep: zero rows affected, skipped
	mock.ExpectExec("UPDATE change_request SET status").
		WithArgs("processing", "ch-1", "new").
		WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectExec("UPDATE change_request SET status").
		WithArgs("processing", "ch-2", "new").
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery("SELECT .* FROM change_request WHERE id").
		WithArgs("ch-2").
		WillReturnRows(changeRows().AddRow(
			"ch-2", "BR-0045", "dbo", "usp_ProcessRefunds", "Stored Procedure", "Bug fix",
			"mlee", now, "", false, "processing", nil, now, now))

	claimed, err := repo.ClaimNew(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, "ch-2", claimed[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRepositoryMarkFailed(t *testing.T) {
	repo, mock := newMockChangeRepo(t)

	mock.ExpectExec("UPDATE change_request SET status").
		WithArgs("failed", "analyzer: no CREATE PROCEDURE header", "ch-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkFailed(context.Background(), "ch-1", "analyzer: no CREATE PROCEDURE header")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRepositoryRecentByObject(t *testing.T) {
	repo, mock := newMockChangeRepo(t)

	mock.ExpectQuery("SELECT change_date, summary, ticket_ref").
		WithArgs("dbo", "usp_GetCustomerOrders", "drafted", 5).
		WillReturnRows(sqlmock.NewRows([]string{"change_date", "summary", "ticket_ref"}).
			AddRow(time.Date(2026, 7, 14, 0, 0, 0, 0, time.UTC), "Added pagination", "DF-0089").
			AddRow(time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), "Index hint removed", "EN-0067"))

	recent, err := repo.RecentByObject(context.Background(), "dbo", "usp_GetCustomerOrders", 5)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "2026-07-14", recent[0].Date)
	assert.Equal(t, "DF-0089", recent[0].RefDoc)
	assert.NoError(t, mock.ExpectationsWereMet())
}
