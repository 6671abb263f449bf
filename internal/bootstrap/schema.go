package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/docuforge/backend/internal/infrastructure/database"
	"github.com/docuforge/backend/internal/infrastructure/persistence"
)

// tableDDL holds the CREATE TABLE statement for one table. Column lists must
// stay in sync with the repository column constants in
// internal/infrastructure/persistence.
type tableDDL struct {
	name string
	ddl  string
}

func systemTables() []tableDDL {
	return []tableDDL{
		{
			name: persistence.TableChangeRequest,
			ddl: `CREATE TABLE IF NOT EXISTS ` + persistence.TableChangeRequest + ` (
				id VARCHAR(36) PRIMARY KEY,
				ticket_ref VARCHAR(64) NOT NULL,
				schema_name VARCHAR(128) NOT NULL DEFAULT 'dbo',
				object_name VARCHAR(256) NOT NULL,
				object_type VARCHAR(64) NOT NULL DEFAULT 'Stored Procedure',
				summary TEXT,
				changed_by VARCHAR(128),
				change_date DATE NULL,
				sql_source MEDIUMTEXT,
				is_qa BOOLEAN NOT NULL DEFAULT FALSE,
				status VARCHAR(32) NOT NULL DEFAULT 'new',
				error_message TEXT,
				created_date DATETIME NOT NULL,
				last_modified_date DATETIME NOT NULL,
				UNIQUE KEY uk_change_ticket_object (ticket_ref, object_name),
				KEY idx_change_status (status, created_date),
				KEY idx_change_object (schema_name, object_name, change_date)
			)`,
		},
		{
			name: persistence.TableProcedure,
			ddl: `CREATE TABLE IF NOT EXISTS ` + persistence.TableProcedure + ` (
				id VARCHAR(36) PRIMARY KEY,
				schema_name VARCHAR(128) NOT NULL,
				name VARCHAR(256) NOT NULL,
				object_type VARCHAR(64) NOT NULL,
				current_version VARCHAR(32) NOT NULL DEFAULT '',
				tier INT NOT NULL DEFAULT 1,
				complexity_score INT NOT NULL DEFAULT 0,
				is_qa BOOLEAN NOT NULL DEFAULT FALSE,
				document_status VARCHAR(32) NOT NULL DEFAULT 'draft',
				last_documented_at DATETIME NULL,
				created_date DATETIME NOT NULL,
				last_modified_date DATETIME NOT NULL,
				UNIQUE KEY uk_procedure_object (schema_name, name)
			)`,
		},
		{
			name: persistence.TableDocument,
			ddl: `CREATE TABLE IF NOT EXISTS ` + persistence.TableDocument + ` (
				id VARCHAR(36) PRIMARY KEY,
				procedure_id VARCHAR(36) NOT NULL,
				change_request_id VARCHAR(36) NOT NULL,
				version VARCHAR(32) NOT NULL,
				revision INT NOT NULL DEFAULT 1,
				is_qa BOOLEAN NOT NULL DEFAULT FALSE,
				status VARCHAR(32) NOT NULL DEFAULT 'draft',
				tier INT NOT NULL DEFAULT 1,
				tier_confidence DOUBLE NOT NULL DEFAULT 0,
				complexity_score INT NOT NULL DEFAULT 0,
				purpose TEXT,
				whats_new TEXT,
				performance_notes TEXT,
				error_handling TEXT,
				parameters_json JSON,
				logic_flow_json JSON,
				tables_json JSON,
				procedures_json JSON,
				usage_examples_json JSON,
				needs_review_json JSON,
				file_path VARCHAR(512) NOT NULL DEFAULT '',
				created_date DATETIME NOT NULL,
				last_modified_date DATETIME NOT NULL,
				KEY idx_document_procedure (procedure_id, revision),
				KEY idx_document_change (change_request_id)
			)`,
		},
		{
			name: persistence.TableApprovalWorkItem,
			ddl: `CREATE TABLE IF NOT EXISTS ` + persistence.TableApprovalWorkItem + ` (
				id VARCHAR(36) PRIMARY KEY,
				document_id VARCHAR(36) NOT NULL,
				status VARCHAR(32) NOT NULL DEFAULT 'pending',
				submitted_by_id VARCHAR(36) NOT NULL,
				approver_id VARCHAR(36) NULL,
				comments TEXT,
				decided_by_id VARCHAR(36) NULL,
				decided_at DATETIME NULL,
				created_date DATETIME NOT NULL,
				KEY idx_approval_document (document_id, status),
				KEY idx_approval_status (status, created_date)
			)`,
		},
		{
			name: persistence.TableOutboxEvent,
			ddl: `CREATE TABLE IF NOT EXISTS ` + persistence.TableOutboxEvent + ` (
				id VARCHAR(36) PRIMARY KEY,
				event_type VARCHAR(64) NOT NULL,
				payload JSON,
				status VARCHAR(32) NOT NULL DEFAULT 'pending',
				retry_count INT NOT NULL DEFAULT 0,
				error_message TEXT,
				processed_date DATETIME NULL,
				created_date DATETIME NOT NULL,
				last_modified_date DATETIME NOT NULL,
				KEY idx_outbox_status (status, created_date)
			)`,
		},
		{
			name: persistence.TableNotification,
			ddl: `CREATE TABLE IF NOT EXISTS ` + persistence.TableNotification + ` (
				id VARCHAR(36) PRIMARY KEY,
				reviewer_id VARCHAR(36) NOT NULL,
				title VARCHAR(256) NOT NULL,
				body TEXT,
				is_read BOOLEAN NOT NULL DEFAULT FALSE,
				created_date DATETIME NOT NULL,
				KEY idx_notification_reviewer (reviewer_id, is_read, created_date)
			)`,
		},
		{
			name: persistence.TableReviewer,
			ddl: `CREATE TABLE IF NOT EXISTS ` + persistence.TableReviewer + ` (
				id VARCHAR(36) PRIMARY KEY,
				name VARCHAR(128) NOT NULL,
				email VARCHAR(256) NOT NULL,
				password_hash VARCHAR(128) NOT NULL,
				role VARCHAR(32) NOT NULL DEFAULT 'reviewer',
				created_date DATETIME NOT NULL,
				UNIQUE KEY uk_reviewer_email (email)
			)`,
		},
	}
}

// InitializeSchema creates all system tables if they do not exist yet.
// Statements are idempotent, so restarts are safe.
func InitializeSchema(db *database.Connection) error {
	log.Println("🔧 Initializing database schema...")

	ctx := context.Background()
	for _, table := range systemTables() {
		if _, err := db.ExecContext(ctx, table.ddl); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table.name, err)
		}
	}

	log.Printf("✅ Schema ready (%d tables)", len(systemTables()))
	return nil
}
