package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/docuforge/backend/internal/domain/models"
	"github.com/docuforge/backend/pkg/utils"
)

// DocumentRepository handles generated document revisions.
// Structured sections (parameters, logic flow, dependencies, examples) are
// stored as JSON columns; scalar sections are plain text columns.
type DocumentRepository struct {
	db *sql.DB
}

// NewDocumentRepository creates a new DocumentRepository
func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, procedure_id, change_request_id, version, revision, is_qa,
		status, tier, tier_confidence, complexity_score,
		purpose, whats_new, performance_notes, error_handling,
		parameters_json, logic_flow_json, tables_json, procedures_json,
		usage_examples_json, needs_review_json,
		file_path, created_date, last_modified_date`

// Insert stores a new document revision
func (r *DocumentRepository) Insert(ctx context.Context, exec Executor, doc *models.DocumentRecord) (string, error) {
	id := utils.GenerateID()

	paramsJSON, err := marshalJSON(doc.Parameters)
	if err != nil {
		return "", err
	}
	flowJSON, err := marshalJSON(doc.LogicFlow)
	if err != nil {
		return "", err
	}
	tablesJSON, err := marshalJSON(doc.Tables)
	if err != nil {
		return "", err
	}
	procsJSON, err := marshalJSON(doc.Procedures)
	if err != nil {
		return "", err
	}
	examplesJSON, err := marshalJSON(doc.UsageExamples)
	if err != nil {
		return "", err
	}
	reviewJSON, err := marshalJSON(doc.NeedsReview)
	if err != nil {
		return "", err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, procedure_id, change_request_id, version, revision, is_qa,
			status, tier, tier_confidence, complexity_score,
			purpose, whats_new, performance_notes, error_handling,
			parameters_json, logic_flow_json, tables_json, procedures_json,
			usage_examples_json, needs_review_json,
			file_path, created_date, last_modified_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`, TableDocument)

	_, err = exec.ExecContext(ctx, query,
		id, doc.ProcedureID, doc.ChangeRequestID, doc.Version, doc.Revision, doc.IsQA,
		string(doc.Status), int(doc.Tier), doc.TierConfidence, doc.ComplexityScore,
		doc.Purpose, doc.WhatsNew, doc.PerformanceNotes, doc.ErrorHandling,
		paramsJSON, flowJSON, tablesJSON, procsJSON,
		examplesJSON, reviewJSON,
		doc.FilePath)
	if err != nil {
		return "", fmt.Errorf("failed to insert document: %w", err)
	}

	return id, nil
}

// GetByID returns one document revision or sql.ErrNoRows
func (r *DocumentRepository) GetByID(ctx context.Context, exec Executor, id string) (*models.DocumentRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, documentColumns, TableDocument)
	return scanDocument(exec.QueryRowContext(ctx, query, id))
}

// ListByProcedure returns all revisions for a procedure, newest first
func (r *DocumentRepository) ListByProcedure(ctx context.Context, procedureID string) ([]*models.DocumentRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE procedure_id = ? ORDER BY revision DESC
	`, documentColumns, TableDocument)

	rows, err := r.db.QueryContext(ctx, query, procedureID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var out []*models.DocumentRecord
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// NextRevision returns the next revision number for a procedure
func (r *DocumentRepository) NextRevision(ctx context.Context, procedureID string) (int, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(MAX(revision), 0) + 1 FROM %s WHERE procedure_id = ?
	`, TableDocument)

	var next int
	if err := r.db.QueryRowContext(ctx, query, procedureID).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to compute next revision: %w", err)
	}
	return next, nil
}

// UpdateStatus transitions a document's approval lifecycle state
func (r *DocumentRepository) UpdateStatus(ctx context.Context, exec Executor, id string, status models.DocumentStatus) error {
	query := fmt.Sprintf(`
		UPDATE %s SET status = ?, last_modified_date = NOW() WHERE id = ?
	`, TableDocument)
	_, err := exec.ExecContext(ctx, query, string(status), id)
	return err
}

// UpdateFilePath records the rendered artifact's on-disk location
func (r *DocumentRepository) UpdateFilePath(ctx context.Context, exec Executor, id, path string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET file_path = ?, last_modified_date = NOW() WHERE id = ?
	`, TableDocument)
	_, err := exec.ExecContext(ctx, query, path, id)
	return err
}

// VersionHistory returns the full version history for a procedure, newest
// first, built from its document revisions and their originating changes.
func (r *DocumentRepository) VersionHistory(ctx context.Context, procedureID string) ([]models.VersionEntry, error) {
	query := fmt.Sprintf(`
		SELECT d.version, d.created_date, COALESCE(c.changed_by, ''), COALESCE(c.summary, ''), COALESCE(c.ticket_ref, '')
		FROM %s d
		LEFT JOIN %s c ON c.id = d.change_request_id
		WHERE d.procedure_id = ?
		ORDER BY d.revision DESC
	`, TableDocument, TableChangeRequest)

	rows, err := r.db.QueryContext(ctx, query, procedureID)
	if err != nil {
		return nil, fmt.Errorf("failed to query version history: %w", err)
	}
	defer rows.Close()

	var out []models.VersionEntry
	for rows.Next() {
		var e models.VersionEntry
		var created sql.NullTime
		if err := rows.Scan(&e.Version, &created, &e.ChangedBy, &e.Changes, &e.RefDoc); err != nil {
			return nil, err
		}
		if created.Valid {
			e.Date = created.Time.Format("2006-01-02")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanDocument(row rowScanner) (*models.DocumentRecord, error) {
	var doc models.DocumentRecord
	var status string
	var tier int
	var changeID, paramsJSON, flowJSON, tablesJSON, procsJSON, examplesJSON, reviewJSON, filePath sql.NullString

	if err := row.Scan(
		&doc.ID, &doc.ProcedureID, &changeID, &doc.Version, &doc.Revision, &doc.IsQA,
		&status, &tier, &doc.TierConfidence, &doc.ComplexityScore,
		&doc.Purpose, &doc.WhatsNew, &doc.PerformanceNotes, &doc.ErrorHandling,
		&paramsJSON, &flowJSON, &tablesJSON, &procsJSON,
		&examplesJSON, &reviewJSON,
		&filePath, &doc.CreatedDate, &doc.LastModifiedDate,
	); err != nil {
		return nil, err
	}

	doc.Status = models.DocumentStatus(status)
	doc.Tier = models.Tier(tier)
	doc.ChangeRequestID = changeID.String
	doc.FilePath = filePath.String

	if err := unmarshalJSON(paramsJSON, &doc.Parameters); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(flowJSON, &doc.LogicFlow); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(tablesJSON, &doc.Tables); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(procsJSON, &doc.Procedures); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(examplesJSON, &doc.UsageExamples); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(reviewJSON, &doc.NeedsReview); err != nil {
		return nil, err
	}

	return &doc, nil
}

func marshalJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document section: %w", err)
	}
	return string(data), nil
}

func unmarshalJSON(col sql.NullString, dst interface{}) error {
	if !col.Valid || col.String == "" || col.String == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(col.String), dst); err != nil {
		return fmt.Errorf("failed to unmarshal document section: %w", err)
	}
	return nil
}
