package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/docuforge/backend/internal/domain/events"
	"github.com/docuforge/backend/internal/domain/models"
	"github.com/docuforge/backend/internal/infrastructure/persistence"
	"github.com/docuforge/backend/pkg/auth"
	apperrors "github.com/docuforge/backend/pkg/errors"
)

// Redrafter produces a new document revision after a rejection
type Redrafter interface {
	Redraft(ctx context.Context, documentID, reviewerComments string) (string, error)
}

// ApprovalService handles the submit → approve/reject workflow
type ApprovalService struct {
	approvals  *persistence.ApprovalRepository
	documents  *persistence.DocumentRepository
	procedures *persistence.ProcedureRepository
	outbox     *OutboxService
	txManager  *persistence.TransactionManager
	redrafter  Redrafter
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(
	approvals *persistence.ApprovalRepository,
	documents *persistence.DocumentRepository,
	procedures *persistence.ProcedureRepository,
	outbox *OutboxService,
	txManager *persistence.TransactionManager,
	redrafter Redrafter,
) *ApprovalService {
	return &ApprovalService{
		approvals:  approvals,
		documents:  documents,
		procedures: procedures,
		outbox:     outbox,
		txManager:  txManager,
		redrafter:  redrafter,
	}
}

// SubmitRequest is the input for submitting a document for approval
type SubmitRequest struct {
	DocumentID string
	Comments   string
	// ApproverID pins the work item to one reviewer; nil lets any reviewer act
	ApproverID *string
}

// Submit creates a pending work item for a drafted document
func (s *ApprovalService) Submit(ctx context.Context, req SubmitRequest, reviewer *auth.ReviewerSession) (string, error) {
	doc, err := s.documents.GetByID(ctx, s.txManager.ExecutorFor(ctx), req.DocumentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperrors.NewNotFoundError("document", req.DocumentID)
		}
		return "", apperrors.NewInternalError("failed to load document", err)
	}

	if doc.Status != models.DocStatusDraft && doc.Status != models.DocStatusRejected {
		return "", apperrors.NewValidationError("document_id",
			fmt.Sprintf("document is %s, only draft or rejected documents can be submitted", doc.Status))
	}

	hasPending, err := s.approvals.HasPendingForDocument(ctx, req.DocumentID)
	if err != nil {
		return "", apperrors.NewInternalError("failed to check pending approvals", err)
	}
	if hasPending {
		return "", apperrors.NewConflictError("approval work item", "document_id", req.DocumentID)
	}

	var workItemID string
	err = s.txManager.WithTransactionContext(ctx, func(txCtx context.Context) error {
		exec := s.txManager.ExecutorFor(txCtx)

		var txErr error
		workItemID, txErr = s.approvals.Insert(txCtx, exec, &models.ApprovalWorkItem{
			DocumentID:    req.DocumentID,
			SubmittedByID: reviewer.ID,
			ApproverID:    req.ApproverID,
			Comments:      req.Comments,
		})
		if txErr != nil {
			return txErr
		}

		if txErr = s.documents.UpdateStatus(txCtx, exec, req.DocumentID, models.DocStatusPending); txErr != nil {
			return txErr
		}
		if txErr = s.procedures.UpdateStatus(txCtx, exec, doc.ProcedureID, models.DocStatusPending); txErr != nil {
			return txErr
		}

		return s.outbox.EnqueueEvent(txCtx, events.EventDocumentSubmitted, events.DocumentEventPayload{
			DocumentID:    req.DocumentID,
			SubmittedByID: reviewer.ID,
			Comments:      req.Comments,
		})
	})
	if err != nil {
		return "", apperrors.NewInternalError("failed to submit document", err)
	}

	log.Printf("✅ Document %s submitted for approval by %s", req.DocumentID, reviewer.Email)
	return workItemID, nil
}

// Approve approves a pending work item
func (s *ApprovalService) Approve(ctx context.Context, workItemID, comments string, reviewer *auth.ReviewerSession) error {
	return s.processDecision(ctx, workItemID, models.ApprovalStatusApproved, comments, reviewer)
}

// Reject rejects a pending work item and triggers re-drafting
func (s *ApprovalService) Reject(ctx context.Context, workItemID, comments string, reviewer *auth.ReviewerSession) error {
	return s.processDecision(ctx, workItemID, models.ApprovalStatusRejected, comments, reviewer)
}

// decisionMaxRetries bounds deadlock retries for concurrent decisions
const decisionMaxRetries = 3

// processDecision applies an approve/reject decision transactionally.
// The work item row is locked for the duration of the decision, so two
// reviewers deciding related items can deadlock; those attempts are retried.
func (s *ApprovalService) processDecision(ctx context.Context, workItemID string, decision models.ApprovalStatus, comments string, reviewer *auth.ReviewerSession) error {
	var documentID string

	err := s.txManager.WithRetry(func(tx *sql.Tx) error {
		txCtx := s.txManager.InjectTx(ctx, tx)

		item, txErr := s.approvals.GetForUpdate(txCtx, tx, workItemID)
		if txErr != nil {
			if errors.Is(txErr, sql.ErrNoRows) {
				return apperrors.NewNotFoundError("approval work item", workItemID)
			}
			return txErr
		}

		if item.Status != models.ApprovalStatusPending {
			return apperrors.NewValidationError("work_item_id",
				fmt.Sprintf("work item is already %s", item.Status))
		}
		if item.ApproverID != nil && *item.ApproverID != reviewer.ID && !reviewer.IsAdmin() {
			return apperrors.NewPermissionError("decide", "this approval work item")
		}
		if item.SubmittedByID == reviewer.ID && !reviewer.IsAdmin() {
			return apperrors.NewPermissionError("decide", "your own submission")
		}

		documentID = item.DocumentID

		if txErr = s.approvals.UpdateDecision(txCtx, tx, workItemID, decision, reviewer.ID, comments, time.Now()); txErr != nil {
			return txErr
		}

		docStatus := models.DocStatusApproved
		eventType := events.EventDocumentApproved
		if decision == models.ApprovalStatusRejected {
			docStatus = models.DocStatusRejected
			eventType = events.EventDocumentRejected
		}

		doc, txErr := s.documents.GetByID(txCtx, tx, item.DocumentID)
		if txErr != nil {
			return txErr
		}
		if txErr = s.documents.UpdateStatus(txCtx, tx, item.DocumentID, docStatus); txErr != nil {
			return txErr
		}
		if txErr = s.procedures.UpdateStatus(txCtx, tx, doc.ProcedureID, docStatus); txErr != nil {
			return txErr
		}

		return s.outbox.EnqueueEvent(txCtx, eventType, events.DocumentEventPayload{
			DocumentID:    item.DocumentID,
			SubmittedByID: item.SubmittedByID,
			ActorID:       reviewer.ID,
			Comments:      comments,
		})
	}, decisionMaxRetries)
	if err != nil {
		var appErr apperrors.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return apperrors.NewInternalError("failed to process approval decision", err)
	}

	log.Printf("✅ Work item %s %s by %s", workItemID, decision, reviewer.Email)

	// Rejection triggers a new revision drafted with the reviewer's comments
	if decision == models.ApprovalStatusRejected && s.redrafter != nil {
		go s.redraftAfterRejection(documentID, comments)
	}

	return nil
}

func (s *ApprovalService) redraftAfterRejection(documentID, comments string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("🔥 Panic re-drafting document %s: %v", documentID, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	newID, err := s.redrafter.Redraft(ctx, documentID, comments)
	if err != nil {
		log.Printf("❌ Re-draft after rejection of %s failed: %v", documentID, err)
		return
	}
	log.Printf("✅ Rejected document %s re-drafted as revision %s", documentID, newID)
}

// Pending returns the reviewer's pending approval queue
func (s *ApprovalService) Pending(ctx context.Context, reviewer *auth.ReviewerSession) ([]*models.ApprovalWorkItem, error) {
	items, err := s.approvals.PendingForReviewer(ctx, reviewer.ID, 100)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load pending approvals", err)
	}
	return items, nil
}

// History returns all work items for a document, newest first
func (s *ApprovalService) History(ctx context.Context, documentID string) ([]*models.ApprovalWorkItem, error) {
	items, err := s.approvals.HistoryForDocument(ctx, documentID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load approval history", err)
	}
	return items, nil
}
