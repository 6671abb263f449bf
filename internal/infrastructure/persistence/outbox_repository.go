package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/docuforge/backend/pkg/utils"
)

// Outbox event statuses
const (
	OutboxStatusPending   = "pending"
	OutboxStatusProcessed = "processed"
	OutboxStatusFailed    = "failed"
)

// OutboxEvent represents a persisted event record
type OutboxEvent struct {
	ID           string
	EventType    string
	Payload      string
	Status       string
	RetryCount   int
	ErrorMessage string
	CreatedDate  time.Time
}

// OutboxRepository handles database operations for the outbox pattern
type OutboxRepository struct {
	db *sql.DB
}

// NewOutboxRepository creates a new OutboxRepository
func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Enqueue inserts a new pending event into the outbox
func (r *OutboxRepository) Enqueue(ctx context.Context, exec Executor, eventType string, payload interface{}) (string, error) {
	id := utils.GenerateID()

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event payload: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, event_type, payload, status, retry_count, created_date, last_modified_date)
		VALUES (?, ?, ?, ?, 0, NOW(), NOW())
	`, TableOutboxEvent)

	if _, err := exec.ExecContext(ctx, query, id, eventType, payloadJSON, OutboxStatusPending); err != nil {
		return "", fmt.Errorf("failed to enqueue event: %w", err)
	}

	return id, nil
}

// GetPendingEvents retrieves pending events ordered by creation time
func (r *OutboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]OutboxEvent, error) {
	query := fmt.Sprintf(`
		SELECT id, event_type, payload, retry_count
		FROM %s
		WHERE status = ?
		ORDER BY created_date ASC
		LIMIT ?
	`, TableOutboxEvent)

	rows, err := r.db.QueryContext(ctx, query, OutboxStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending events: %w", err)
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.EventType, &e.Payload, &e.RetryCount); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// ClaimEvent attempts to lock a specific pending event for processing.
// Returns an empty string if the event was already claimed.
func (r *OutboxRepository) ClaimEvent(ctx context.Context, tx *sql.Tx, id string) (string, error) {
	query := fmt.Sprintf(`
		SELECT id FROM %s
		WHERE id = ? AND status = ?
		FOR UPDATE SKIP LOCKED
	`, TableOutboxEvent)

	var claimedID string
	err := tx.QueryRowContext(ctx, query, id, OutboxStatusPending).Scan(&claimedID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return claimedID, nil
}

// MarkProcessed marks an event as successfully delivered
func (r *OutboxRepository) MarkProcessed(ctx context.Context, exec Executor, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = ?, processed_date = NOW(), last_modified_date = NOW()
		WHERE id = ?
	`, TableOutboxEvent)
	_, err := exec.ExecContext(ctx, query, OutboxStatusProcessed, id)
	return err
}

// MarkFailed parks an event that exhausted its retries
func (r *OutboxRepository) MarkFailed(ctx context.Context, exec Executor, id, errMessage string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = ?, error_message = ?, last_modified_date = NOW()
		WHERE id = ?
	`, TableOutboxEvent)
	_, err := exec.ExecContext(ctx, query, OutboxStatusFailed, errMessage, id)
	return err
}

// IncrementRetry bumps the retry count and records the last error
func (r *OutboxRepository) IncrementRetry(ctx context.Context, exec Executor, id string, newCount int, errMessage string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET retry_count = ?, error_message = ?, last_modified_date = NOW()
		WHERE id = ?
	`, TableOutboxEvent)
	_, err := exec.ExecContext(ctx, query, newCount, errMessage, id)
	return err
}

// CleanupProcessed deletes processed events older than the cutoff
func (r *OutboxRepository) CleanupProcessed(ctx context.Context, cutoff time.Time) (int64, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE status = ? AND processed_date < ?
	`, TableOutboxEvent)

	result, err := r.db.ExecContext(ctx, query, OutboxStatusProcessed, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
