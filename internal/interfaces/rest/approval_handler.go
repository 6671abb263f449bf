package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docuforge/backend/internal/application/services"
	"github.com/docuforge/backend/internal/domain/models"
	"github.com/docuforge/backend/pkg/auth"
)

// ApprovalService defines the interface for approval operations
type ApprovalService interface {
	Submit(ctx context.Context, req services.SubmitRequest, reviewer *auth.ReviewerSession) (string, error)
	Approve(ctx context.Context, workItemID, comments string, reviewer *auth.ReviewerSession) error
	Reject(ctx context.Context, workItemID, comments string, reviewer *auth.ReviewerSession) error
	Pending(ctx context.Context, reviewer *auth.ReviewerSession) ([]*models.ApprovalWorkItem, error)
	History(ctx context.Context, documentID string) ([]*models.ApprovalWorkItem, error)
}

// ApprovalHandler handles approval workflow API endpoints
type ApprovalHandler struct {
	svc ApprovalService
}

// NewApprovalHandler creates a new ApprovalHandler
func NewApprovalHandler(svc ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{svc: svc}
}

// SubmitRequest represents a request to submit a document for approval
type SubmitRequest struct {
	DocumentID string  `json:"document_id" binding:"required"`
	Comments   string  `json:"comments"`
	ApproverID *string `json:"approver_id"`
}

// ApprovalActionRequest represents an approve/reject request
type ApprovalActionRequest struct {
	Comments string `json:"comments"`
}

// Submit handles POST /api/approvals/submit
func (h *ApprovalHandler) Submit(c *gin.Context) {
	reviewer := GetReviewerFromContext(c)

	var req SubmitRequest
	if !BindJSON(c, &req) {
		return
	}

	workItemID, err := h.svc.Submit(c.Request.Context(), services.SubmitRequest{
		DocumentID: req.DocumentID,
		Comments:   req.Comments,
		ApproverID: req.ApproverID,
	}, reviewer)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":      "Document submitted for approval",
		"work_item_id": workItemID,
	})
}

// Approve handles POST /api/approvals/:workItemId/approve
func (h *ApprovalHandler) Approve(c *gin.Context) {
	workItemID := c.Param("workItemId")
	reviewer := GetReviewerFromContext(c)

	var req ApprovalActionRequest
	_ = c.ShouldBindJSON(&req) // Optional comments

	HandleActionEnvelope(c, "Approval granted", func() error {
		return h.svc.Approve(c.Request.Context(), workItemID, req.Comments, reviewer)
	})
}

// Reject handles POST /api/approvals/:workItemId/reject
func (h *ApprovalHandler) Reject(c *gin.Context) {
	workItemID := c.Param("workItemId")
	reviewer := GetReviewerFromContext(c)

	var req ApprovalActionRequest
	_ = c.ShouldBindJSON(&req) // Optional comments

	HandleActionEnvelope(c, "Approval rejected", func() error {
		return h.svc.Reject(c.Request.Context(), workItemID, req.Comments, reviewer)
	})
}

// GetPending handles GET /api/approvals/pending
func (h *ApprovalHandler) GetPending(c *gin.Context) {
	reviewer := GetReviewerFromContext(c)
	HandleGetEnvelope(c, "data", func() (interface{}, error) {
		return h.svc.Pending(c.Request.Context(), reviewer)
	})
}

// GetHistory handles GET /api/approvals/history/:documentId
func (h *ApprovalHandler) GetHistory(c *gin.Context) {
	documentID := c.Param("documentId")
	HandleGetEnvelope(c, "data", func() (interface{}, error) {
		return h.svc.History(c.Request.Context(), documentID)
	})
}
