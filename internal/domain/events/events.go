package events

// EventType identifies a pipeline event flowing through the outbox and bus
type EventType string

const (
	EventChangeIngested    EventType = "change.ingested"
	EventDocumentDrafted   EventType = "document.drafted"
	EventDocumentSubmitted EventType = "document.submitted"
	EventDocumentApproved  EventType = "document.approved"
	EventDocumentRejected  EventType = "document.rejected"
)

// DocumentEventPayload is the payload for document lifecycle events
type DocumentEventPayload struct {
	DocumentID    string `json:"document_id"`
	ProcedureName string `json:"procedure_name,omitempty"`
	SubmittedByID string `json:"submitted_by_id,omitempty"`
	ActorID       string `json:"actor_id,omitempty"`
	Comments      string `json:"comments,omitempty"`
}

// ChangeEventPayload is the payload for change-intake events
type ChangeEventPayload struct {
	ChangeRequestID string `json:"change_request_id"`
	TicketRef       string `json:"ticket_ref"`
	ObjectName      string `json:"object_name"`
}
