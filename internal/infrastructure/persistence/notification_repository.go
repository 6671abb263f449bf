package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/docuforge/backend/internal/domain/models"
	"github.com/docuforge/backend/pkg/utils"
)

// NotificationRepository handles in-app reviewer notifications
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Insert stores a new unread notification
func (r *NotificationRepository) Insert(ctx context.Context, exec Executor, n *models.Notification) (string, error) {
	id := utils.GenerateID()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, reviewer_id, title, body, is_read, created_date)
		VALUES (?, ?, ?, ?, false, NOW())
	`, TableNotification)

	if _, err := exec.ExecContext(ctx, query, id, n.ReviewerID, n.Title, n.Body); err != nil {
		return "", fmt.Errorf("failed to insert notification: %w", err)
	}
	return id, nil
}

// ListForReviewer returns a reviewer's notifications, newest first
func (r *NotificationRepository) ListForReviewer(ctx context.Context, reviewerID string, limit int) ([]*models.Notification, error) {
	query := fmt.Sprintf(`
		SELECT id, reviewer_id, title, body, is_read, created_date
		FROM %s WHERE reviewer_id = ?
		ORDER BY created_date DESC
		LIMIT ?
	`, TableNotification)

	rows, err := r.db.QueryContext(ctx, query, reviewerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.ReviewerID, &n.Title, &n.Body, &n.IsRead, &n.CreatedDate); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

// MarkRead marks one of the reviewer's notifications as read
func (r *NotificationRepository) MarkRead(ctx context.Context, id, reviewerID string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET is_read = true WHERE id = ? AND reviewer_id = ?
	`, TableNotification)

	result, err := r.db.ExecContext(ctx, query, id, reviewerID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
