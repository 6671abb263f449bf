package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/docuforge/backend/internal/domain/models"
	"github.com/docuforge/backend/pkg/utils"
)

// ApprovalRepository handles approval work items
type ApprovalRepository struct {
	db *sql.DB
}

// NewApprovalRepository creates a new ApprovalRepository
func NewApprovalRepository(db *sql.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

const approvalColumns = `id, document_id, status, submitted_by_id, approver_id,
		comments, decided_by_id, decided_at, created_date`

// Insert stores a new pending work item and returns its ID
func (r *ApprovalRepository) Insert(ctx context.Context, exec Executor, item *models.ApprovalWorkItem) (string, error) {
	id := utils.GenerateID()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, status, submitted_by_id, approver_id, comments, created_date)
		VALUES (?, ?, ?, ?, ?, ?, NOW())
	`, TableApprovalWorkItem)

	_, err := exec.ExecContext(ctx, query,
		id, item.DocumentID, string(models.ApprovalStatusPending),
		item.SubmittedByID, item.ApproverID, item.Comments)
	if err != nil {
		return "", fmt.Errorf("failed to insert approval work item: %w", err)
	}
	return id, nil
}

// GetForUpdate loads a work item with a row lock; call inside a transaction
func (r *ApprovalRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id string) (*models.ApprovalWorkItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ? FOR UPDATE`, approvalColumns, TableApprovalWorkItem)
	return scanWorkItem(tx.QueryRowContext(ctx, query, id))
}

// GetByID returns one work item or sql.ErrNoRows
func (r *ApprovalRepository) GetByID(ctx context.Context, id string) (*models.ApprovalWorkItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, approvalColumns, TableApprovalWorkItem)
	return scanWorkItem(r.db.QueryRowContext(ctx, query, id))
}

// HasPendingForDocument reports whether the document already has a pending item
func (r *ApprovalRepository) HasPendingForDocument(ctx context.Context, documentID string) (bool, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s WHERE document_id = ? AND status = ?
	`, TableApprovalWorkItem)

	var count int
	if err := r.db.QueryRowContext(ctx, query, documentID, string(models.ApprovalStatusPending)).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check pending approvals: %w", err)
	}
	return count > 0, nil
}

// UpdateDecision records an approve/reject decision on a work item
func (r *ApprovalRepository) UpdateDecision(ctx context.Context, exec Executor, id string, status models.ApprovalStatus, decidedByID, comments string, decidedAt time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s SET status = ?, decided_by_id = ?, comments = ?, decided_at = ? WHERE id = ?
	`, TableApprovalWorkItem)
	_, err := exec.ExecContext(ctx, query, string(status), decidedByID, comments, decidedAt, id)
	return err
}

// PendingForReviewer returns pending work items assigned to the reviewer or
// to nobody in particular, oldest first.
func (r *ApprovalRepository) PendingForReviewer(ctx context.Context, reviewerID string, limit int) ([]*models.ApprovalWorkItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE status = ? AND (approver_id IS NULL OR approver_id = ?)
		ORDER BY created_date ASC
		LIMIT ?
	`, approvalColumns, TableApprovalWorkItem)

	rows, err := r.db.QueryContext(ctx, query, string(models.ApprovalStatusPending), reviewerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending approvals: %w", err)
	}
	defer rows.Close()

	return collectWorkItems(rows)
}

// HistoryForDocument returns all work items for a document, newest first
func (r *ApprovalRepository) HistoryForDocument(ctx context.Context, documentID string) ([]*models.ApprovalWorkItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE document_id = ? ORDER BY created_date DESC
	`, approvalColumns, TableApprovalWorkItem)

	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query approval history: %w", err)
	}
	defer rows.Close()

	return collectWorkItems(rows)
}

func collectWorkItems(rows *sql.Rows) ([]*models.ApprovalWorkItem, error) {
	var out []*models.ApprovalWorkItem
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func scanWorkItem(row rowScanner) (*models.ApprovalWorkItem, error) {
	var item models.ApprovalWorkItem
	var status string
	var approverID, decidedByID sql.NullString
	var decidedAt sql.NullTime

	if err := row.Scan(
		&item.ID, &item.DocumentID, &status, &item.SubmittedByID, &approverID,
		&item.Comments, &decidedByID, &decidedAt, &item.CreatedDate,
	); err != nil {
		return nil, err
	}

	item.Status = models.ApprovalStatus(status)
	if approverID.Valid {
		item.ApproverID = &approverID.String
	}
	if decidedByID.Valid {
		item.DecidedByID = &decidedByID.String
	}
	if decidedAt.Valid {
		item.DecidedAt = &decidedAt.Time
	}
	return &item, nil
}
