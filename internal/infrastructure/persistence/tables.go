package persistence

// Physical table names. Bootstrap DDL in internal/bootstrap must stay in
// sync with these.
const (
	TableChangeRequest    = "change_request"
	TableProcedure        = "procedure_index"
	TableDocument         = "document"
	TableApprovalWorkItem = "approval_work_item"
	TableOutboxEvent      = "outbox_event"
	TableNotification     = "notification"
	TableReviewer         = "reviewer"
)
