package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/docuforge/backend/internal/domain/models"
	"github.com/docuforge/backend/pkg/utils"
)

// ReviewerRepository handles platform reviewer accounts
type ReviewerRepository struct {
	db *sql.DB
}

// NewReviewerRepository creates a new ReviewerRepository
func NewReviewerRepository(db *sql.DB) *ReviewerRepository {
	return &ReviewerRepository{db: db}
}

const reviewerColumns = `id, name, email, password_hash, role, created_date`

// Insert stores a new reviewer account and returns its ID
func (r *ReviewerRepository) Insert(ctx context.Context, reviewer *models.Reviewer) (string, error) {
	id := utils.GenerateID()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, email, password_hash, role, created_date)
		VALUES (?, ?, ?, ?, ?, NOW())
	`, TableReviewer)

	if _, err := r.db.ExecContext(ctx, query, id, reviewer.Name, reviewer.Email, reviewer.PasswordHash, reviewer.Role); err != nil {
		return "", fmt.Errorf("failed to insert reviewer: %w", err)
	}
	return id, nil
}

// GetByEmail returns the reviewer with the given email or sql.ErrNoRows
func (r *ReviewerRepository) GetByEmail(ctx context.Context, email string) (*models.Reviewer, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE email = ?`, reviewerColumns, TableReviewer)
	return scanReviewer(r.db.QueryRowContext(ctx, query, email))
}

// GetByID returns one reviewer or sql.ErrNoRows
func (r *ReviewerRepository) GetByID(ctx context.Context, id string) (*models.Reviewer, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, reviewerColumns, TableReviewer)
	return scanReviewer(r.db.QueryRowContext(ctx, query, id))
}

// ListAll returns every reviewer account ordered by name
func (r *ReviewerRepository) ListAll(ctx context.Context) ([]*models.Reviewer, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY name`, reviewerColumns, TableReviewer)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviewers: %w", err)
	}
	defer rows.Close()

	var out []*models.Reviewer
	for rows.Next() {
		rv, err := scanReviewer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

// CountAll returns the total number of reviewer accounts
func (r *ReviewerRepository) CountAll(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, TableReviewer)

	var count int
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count reviewers: %w", err)
	}
	return count, nil
}

func scanReviewer(row rowScanner) (*models.Reviewer, error) {
	var rv models.Reviewer
	if err := row.Scan(&rv.ID, &rv.Name, &rv.Email, &rv.PasswordHash, &rv.Role, &rv.CreatedDate); err != nil {
		return nil, err
	}
	return &rv, nil
}
