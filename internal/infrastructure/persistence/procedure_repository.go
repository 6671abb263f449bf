package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/docuforge/backend/internal/domain/models"
	"github.com/docuforge/backend/pkg/utils"
)

// ProcedureRepository handles the MasterIndex catalog of documented procedures
type ProcedureRepository struct {
	db *sql.DB
}

// NewProcedureRepository creates a new ProcedureRepository
func NewProcedureRepository(db *sql.DB) *ProcedureRepository {
	return &ProcedureRepository{db: db}
}

const procedureColumns = `id, schema_name, name, object_type, current_version, tier,
		complexity_score, is_qa, document_status, last_documented_at,
		created_date, last_modified_date`

// Upsert returns the catalog entry ID for schema.name, creating the row if
// it does not exist yet.
func (r *ProcedureRepository) Upsert(ctx context.Context, exec Executor, schemaName, name, objectType string, isQA bool) (string, error) {
	query := fmt.Sprintf(`SELECT id FROM %s WHERE schema_name = ? AND name = ?`, TableProcedure)

	var id string
	err := exec.QueryRowContext(ctx, query, schemaName, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to look up procedure %s.%s: %w", schemaName, name, err)
	}

	id = utils.GenerateID()
	insert := fmt.Sprintf(`
		INSERT INTO %s (id, schema_name, name, object_type, current_version, tier,
			complexity_score, is_qa, document_status, created_date, last_modified_date)
		VALUES (?, ?, ?, ?, '', 1, 0, ?, ?, NOW(), NOW())
	`, TableProcedure)

	if _, err := exec.ExecContext(ctx, insert, id, schemaName, name, objectType, isQA, string(models.DocStatusDraft)); err != nil {
		return "", fmt.Errorf("failed to insert procedure %s.%s: %w", schemaName, name, err)
	}
	return id, nil
}

// UpdateDocumentState records the latest pipeline result on the catalog row
func (r *ProcedureRepository) UpdateDocumentState(ctx context.Context, exec Executor, id, version string, tier models.Tier, complexity int, status models.DocumentStatus, documentedAt time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET current_version = ?, tier = ?, complexity_score = ?, document_status = ?,
			last_documented_at = ?, last_modified_date = NOW()
		WHERE id = ?
	`, TableProcedure)

	_, err := exec.ExecContext(ctx, query, version, int(tier), complexity, string(status), documentedAt, id)
	return err
}

// UpdateStatus updates only the document status on the catalog row
func (r *ProcedureRepository) UpdateStatus(ctx context.Context, exec Executor, id string, status models.DocumentStatus) error {
	query := fmt.Sprintf(`
		UPDATE %s SET document_status = ?, last_modified_date = NOW() WHERE id = ?
	`, TableProcedure)
	_, err := exec.ExecContext(ctx, query, string(status), id)
	return err
}

// GetByID returns one catalog entry or sql.ErrNoRows
func (r *ProcedureRepository) GetByID(ctx context.Context, id string) (*models.Procedure, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, procedureColumns, TableProcedure)
	return scanProcedure(r.db.QueryRowContext(ctx, query, id))
}

// List returns catalog entries ordered by schema and name
func (r *ProcedureRepository) List(ctx context.Context, limit int) ([]*models.Procedure, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s ORDER BY schema_name, name LIMIT ?
	`, procedureColumns, TableProcedure)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list procedures: %w", err)
	}
	defer rows.Close()

	var out []*models.Procedure
	for rows.Next() {
		p, err := scanProcedure(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProcedure(row rowScanner) (*models.Procedure, error) {
	var p models.Procedure
	var tier int
	var status string
	var documentedAt sql.NullTime
	if err := row.Scan(
		&p.ID, &p.SchemaName, &p.Name, &p.ObjectType, &p.CurrentVersion, &tier,
		&p.ComplexityScore, &p.IsQA, &status, &documentedAt,
		&p.CreatedDate, &p.LastModifiedDate,
	); err != nil {
		return nil, err
	}
	p.Tier = models.Tier(tier)
	p.DocumentStatus = models.DocumentStatus(status)
	if documentedAt.Valid {
		p.LastDocumentedAt = &documentedAt.Time
	}
	return &p, nil
}
