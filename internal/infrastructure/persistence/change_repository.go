package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/docuforge/backend/internal/domain/models"
	"github.com/docuforge/backend/pkg/utils"
)

// ChangeRepository handles database operations for change requests
type ChangeRepository struct {
	db *sql.DB
}

// NewChangeRepository creates a new ChangeRepository
func NewChangeRepository(db *sql.DB) *ChangeRepository {
	return &ChangeRepository{db: db}
}

const changeColumns = `id, ticket_ref, schema_name, object_name, object_type, summary,
		changed_by, change_date, sql_source, is_qa, status, error_message,
		created_date, last_modified_date`

// Insert stores a new change request with status 'new' and returns its ID
func (r *ChangeRepository) Insert(ctx context.Context, exec Executor, cr *models.ChangeRequest) (string, error) {
	id := utils.GenerateID()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, ticket_ref, schema_name, object_name, object_type, summary,
			changed_by, change_date, sql_source, is_qa, status, created_date, last_modified_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`, TableChangeRequest)

	_, err := exec.ExecContext(ctx, query,
		id, cr.TicketRef, cr.SchemaName, cr.ObjectName, cr.ObjectType, cr.Summary,
		cr.ChangedBy, cr.ChangeDate, cr.SQLSource, cr.IsQA, string(models.ChangeStatusNew))
	if err != nil {
		return "", fmt.Errorf("failed to insert change request: %w", err)
	}

	return id, nil
}

// ExistsByTicket reports whether a change request already exists for the
// given ticket ref and object name.
func (r *ChangeRepository) ExistsByTicket(ctx context.Context, ticketRef, objectName string) (bool, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE ticket_ref = ? AND object_name = ?`, TableChangeRequest)

	var count int
	if err := r.db.QueryRowContext(ctx, query, ticketRef, objectName).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check change request existence: %w", err)
	}
	return count > 0, nil
}

// GetByID returns one change request or sql.ErrNoRows
func (r *ChangeRepository) GetByID(ctx context.Context, id string) (*models.ChangeRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, changeColumns, TableChangeRequest)
	row := r.db.QueryRowContext(ctx, query, id)
	return scanChange(row)
}

// List returns change requests, optionally filtered by status, newest first
func (r *ChangeRepository) List(ctx context.Context, status string, limit int) ([]*models.ChangeRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s`, changeColumns, TableChangeRequest)
	args := []interface{}{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_date DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list change requests: %w", err)
	}
	defer rows.Close()

	var out []*models.ChangeRequest
	for rows.Next() {
		cr, err := scanChange(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}

// ClaimNew atomically moves up to limit 'new' change requests to
// 'processing' and returns the claimed rows. A row lost to a concurrent
// sweep is silently skipped.
func (r *ChangeRepository) ClaimNew(ctx context.Context, limit int) ([]*models.ChangeRequest, error) {
	idQuery := fmt.Sprintf(`
		SELECT id FROM %s WHERE status = ? ORDER BY created_date ASC LIMIT ?
	`, TableChangeRequest)

	rows, err := r.db.QueryContext(ctx, idQuery, string(models.ChangeStatusNew), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query new change requests: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	claimQuery := fmt.Sprintf(`
		UPDATE %s SET status = ?, last_modified_date = NOW()
		WHERE id = ? AND status = ?
	`, TableChangeRequest)

	var claimed []*models.ChangeRequest
	for _, id := range ids {
		res, err := r.db.ExecContext(ctx, claimQuery,
			string(models.ChangeStatusProcessing), id, string(models.ChangeStatusNew))
		if err != nil {
			return claimed, fmt.Errorf("failed to claim change request %s: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil || affected == 0 {
			continue // claimed elsewhere
		}

		cr, err := r.GetByID(ctx, id)
		if err != nil {
			return claimed, err
		}
		claimed = append(claimed, cr)
	}

	return claimed, nil
}

// MarkDrafted marks a change request as successfully processed
func (r *ChangeRepository) MarkDrafted(ctx context.Context, exec Executor, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET status = ?, error_message = NULL, last_modified_date = NOW() WHERE id = ?
	`, TableChangeRequest)
	_, err := exec.ExecContext(ctx, query, string(models.ChangeStatusDrafted), id)
	return err
}

// MarkFailed records a processing failure on a change request
func (r *ChangeRepository) MarkFailed(ctx context.Context, id string, errMsg string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET status = ?, error_message = ?, last_modified_date = NOW() WHERE id = ?
	`, TableChangeRequest)
	_, err := r.db.ExecContext(ctx, query, string(models.ChangeStatusFailed), errMsg, id)
	return err
}

// RecentByObject returns the most recent drafted changes for a procedure,
// newest first, for the document's recent-changes section.
func (r *ChangeRepository) RecentByObject(ctx context.Context, schemaName, objectName string, limit int) ([]models.RecentChange, error) {
	query := fmt.Sprintf(`
		SELECT change_date, summary, ticket_ref
		FROM %s
		WHERE schema_name = ? AND object_name = ? AND status = ?
		ORDER BY change_date DESC
		LIMIT ?
	`, TableChangeRequest)

	rows, err := r.db.QueryContext(ctx, query, schemaName, objectName, string(models.ChangeStatusDrafted), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent changes: %w", err)
	}
	defer rows.Close()

	var out []models.RecentChange
	for rows.Next() {
		var rc models.RecentChange
		var changeDate sql.NullTime
		if err := rows.Scan(&changeDate, &rc.Summary, &rc.RefDoc); err != nil {
			return nil, err
		}
		if changeDate.Valid {
			rc.Date = changeDate.Time.Format("2006-01-02")
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChange(row rowScanner) (*models.ChangeRequest, error) {
	var cr models.ChangeRequest
	var status string
	var errMsg sql.NullString
	if err := row.Scan(
		&cr.ID, &cr.TicketRef, &cr.SchemaName, &cr.ObjectName, &cr.ObjectType, &cr.Summary,
		&cr.ChangedBy, &cr.ChangeDate, &cr.SQLSource, &cr.IsQA, &status, &errMsg,
		&cr.CreatedDate, &cr.LastModifiedDate,
	); err != nil {
		return nil, err
	}
	cr.Status = models.ChangeStatus(status)
	if errMsg.Valid {
		cr.Error = &errMsg.String
	}
	return &cr, nil
}
