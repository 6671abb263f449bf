package models

import "time"

// ChangeStatus is the lifecycle state of an ingested change request
type ChangeStatus string

const (
	ChangeStatusNew        ChangeStatus = "new"
	ChangeStatusProcessing ChangeStatus = "processing"
	ChangeStatusDrafted    ChangeStatus = "drafted"
	ChangeStatusFailed     ChangeStatus = "failed"
)

// ChangeRequest is one row of the external change tracker: a ticket that
// touched a stored procedure and needs its documentation regenerated.
type ChangeRequest struct {
	ID               string       `json:"id"`
	TicketRef        string       `json:"ticket_ref"` // e.g. DF-0089, EN-0067, BR-0045
	SchemaName       string       `json:"schema_name"`
	ObjectName       string       `json:"object_name"`
	ObjectType       string       `json:"object_type"` // "Stored Procedure"
	Summary          string       `json:"summary"`
	ChangedBy        string       `json:"changed_by"`
	ChangeDate       time.Time    `json:"change_date"`
	SQLSource        string       `json:"sql_source,omitempty"`
	IsQA             bool         `json:"is_qa"`
	Status           ChangeStatus `json:"status"`
	Error            *string      `json:"error,omitempty"`
	CreatedDate      time.Time    `json:"created_date"`
	LastModifiedDate time.Time    `json:"last_modified_date"`
}

// Parameter is one stored-procedure parameter extracted by the analyzer
type Parameter struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Description  string `json:"description,omitempty"`
	DefaultValue string `json:"default_value,omitempty"`
}

// ChangeMarker is one comment-delimited change region
// (-- Begin BAS-xxxx ... -- End BAS-xxxx) isolated from procedure source.
type ChangeMarker struct {
	Ref string `json:"ref"`
	SQL string `json:"sql"`
}

// ProcedureFacts is the analyzer output for one stored-procedure source
type ProcedureFacts struct {
	SchemaName      string         `json:"schema_name"`
	Name            string         `json:"name"`
	Parameters      []Parameter    `json:"parameters"`
	Tables          []string       `json:"tables"`
	Procedures      []string       `json:"procedures"`
	StatementCount  int            `json:"statement_count"`
	MaxDepth        int            `json:"max_depth"`
	Markers         []ChangeMarker `json:"markers,omitempty"`
	ComplexityScore int            `json:"complexity_score"` // 0-100
}

// Tier is the document complexity tier driving template depth
type Tier int

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
	Tier3 Tier = 3
)

// Classification is the tier classifier result for one change
type Classification struct {
	Tier       Tier    `json:"tier"`
	Confidence float64 `json:"confidence"`
	Rule       string  `json:"rule,omitempty"` // matched rule name, empty for band fallback
}

// LogicStep is one entry of the logic-flow section
type LogicStep struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UsageExample is one entry of the usage-examples section
type UsageExample struct {
	Title       string `json:"title"`
	Code        string `json:"code"`
	Explanation string `json:"explanation,omitempty"`
}

// VersionEntry is one row of the full version history table
type VersionEntry struct {
	Version   string `json:"version"`
	Date      string `json:"date"`
	ChangedBy string `json:"changed_by"`
	Changes   string `json:"changes"`
	RefDoc    string `json:"ref_doc,omitempty"`
}

// RecentChange is one entry of the "5 most recent changes" section
type RecentChange struct {
	Date    string `json:"date"`
	Summary string `json:"summary"`
	RefDoc  string `json:"ref_doc,omitempty"`
}

// DocumentStatus is the approval lifecycle state of a generated document
type DocumentStatus string

const (
	DocStatusDraft    DocumentStatus = "draft"
	DocStatusPending  DocumentStatus = "pending"
	DocStatusApproved DocumentStatus = "approved"
	DocStatusRejected DocumentStatus = "rejected"
)

// DocumentRecord is one generated documentation revision for a procedure
type DocumentRecord struct {
	ID              string         `json:"id"`
	ProcedureID     string         `json:"procedure_id"`
	ChangeRequestID string         `json:"change_request_id,omitempty"`
	Version         string         `json:"version"`
	Revision        int            `json:"revision"`
	IsQA            bool           `json:"is_qa"`
	Status          DocumentStatus `json:"status"`
	Tier            Tier           `json:"tier"`
	TierConfidence  float64        `json:"tier_confidence"`
	ComplexityScore int            `json:"complexity_score"`

	Purpose          string `json:"purpose,omitempty"`
	WhatsNew         string `json:"whats_new,omitempty"`
	PerformanceNotes string `json:"performance_notes,omitempty"`
	ErrorHandling    string `json:"error_handling,omitempty"`

	Parameters    []Parameter    `json:"parameters,omitempty"`
	LogicFlow     []LogicStep    `json:"logic_flow,omitempty"`
	Tables        []string       `json:"tables,omitempty"`
	Procedures    []string       `json:"procedures,omitempty"`
	UsageExamples []UsageExample `json:"usage_examples,omitempty"`

	// Field names whose drafted value fell below the confidence threshold
	NeedsReview []string `json:"needs_review,omitempty"`

	FilePath         string    `json:"file_path,omitempty"`
	CreatedDate      time.Time `json:"created_date"`
	LastModifiedDate time.Time `json:"last_modified_date"`
}

// Procedure is one MasterIndex row: the catalog entry for a documented
// stored procedure and its current document status.
type Procedure struct {
	ID               string         `json:"id"`
	SchemaName       string         `json:"schema_name"`
	Name             string         `json:"name"`
	ObjectType       string         `json:"object_type"`
	CurrentVersion   string         `json:"current_version"`
	Tier             Tier           `json:"tier"`
	ComplexityScore  int            `json:"complexity_score"`
	IsQA             bool           `json:"is_qa"`
	DocumentStatus   DocumentStatus `json:"document_status"`
	LastDocumentedAt *time.Time     `json:"last_documented_at,omitempty"`
	CreatedDate      time.Time      `json:"created_date"`
	LastModifiedDate time.Time      `json:"last_modified_date"`
}

// ApprovalStatus is the state of one approval work item
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// ApprovalWorkItem tracks one submit/decide cycle for a document
type ApprovalWorkItem struct {
	ID            string         `json:"id"`
	DocumentID    string         `json:"document_id"`
	Status        ApprovalStatus `json:"status"`
	SubmittedByID string         `json:"submitted_by_id"`
	ApproverID    *string        `json:"approver_id,omitempty"` // nil means any reviewer may act
	Comments      string         `json:"comments,omitempty"`
	DecidedByID   *string        `json:"decided_by_id,omitempty"`
	DecidedAt     *time.Time     `json:"decided_at,omitempty"`
	CreatedDate   time.Time      `json:"created_date"`
}

// Reviewer is a platform user who can submit and decide approvals
type Reviewer struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedDate  time.Time `json:"created_date"`
}

// Notification is an in-app message for a reviewer
type Notification struct {
	ID          string    `json:"id"`
	ReviewerID  string    `json:"reviewer_id"`
	Title       string    `json:"title"`
	Body        string    `json:"body,omitempty"`
	IsRead      bool      `json:"is_read"`
	CreatedDate time.Time `json:"created_date"`
}
