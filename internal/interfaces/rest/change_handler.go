package rest

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docuforge/backend/internal/domain/models"
	"github.com/docuforge/backend/internal/infrastructure/persistence"
	"github.com/docuforge/backend/pkg/errors"
)

// ChangeIngestor defines the ingestion operations used by the handler
type ChangeIngestor interface {
	RegisterChange(ctx context.Context, cr *models.ChangeRequest) (string, error)
	ImportCSV(ctx context.Context, r io.Reader) (imported, skipped int, err error)
}

// ChangeHandler handles change-request API endpoints
type ChangeHandler struct {
	svc     ChangeIngestor
	changes *persistence.ChangeRepository
}

// NewChangeHandler creates a new ChangeHandler
func NewChangeHandler(svc ChangeIngestor, changes *persistence.ChangeRepository) *ChangeHandler {
	return &ChangeHandler{svc: svc, changes: changes}
}

// CreateChangeRequest represents a change registration request
type CreateChangeRequest struct {
	TicketRef  string `json:"ticket_ref" binding:"required"`
	SchemaName string `json:"schema_name"`
	ObjectName string `json:"object_name" binding:"required"`
	ObjectType string `json:"object_type"`
	Summary    string `json:"summary"`
	ChangedBy  string `json:"changed_by"`
	ChangeDate string `json:"change_date"`
	SQLSource  string `json:"sql_source"`
	IsQA       bool   `json:"is_qa"`
}

// Create handles POST /api/changes
func (h *ChangeHandler) Create(c *gin.Context) {
	var req CreateChangeRequest
	if !BindJSON(c, &req) {
		return
	}

	cr := &models.ChangeRequest{
		TicketRef:  req.TicketRef,
		SchemaName: req.SchemaName,
		ObjectName: req.ObjectName,
		ObjectType: req.ObjectType,
		Summary:    req.Summary,
		ChangedBy:  req.ChangedBy,
		SQLSource:  req.SQLSource,
		IsQA:       req.IsQA,
	}
	if req.ChangeDate != "" {
		d, err := time.Parse("2006-01-02", req.ChangeDate)
		if err != nil {
			RespondAppError(c, errors.NewValidationError("change_date", "must be YYYY-MM-DD"))
			return
		}
		cr.ChangeDate = d
	}

	HandleCreateEnvelope(c, "id", "Change request registered", func() (interface{}, error) {
		return h.svc.RegisterChange(c.Request.Context(), cr)
	})
}

// Import handles POST /api/changes/import with a multipart CSV file
func (h *ChangeHandler) Import(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		RespondAppError(c, errors.NewValidationError("file", "multipart file field 'file' is required"))
		return
	}
	defer file.Close()

	imported, skipped, err := h.svc.ImportCSV(c.Request.Context(), file)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Import completed",
		"imported": imported,
		"skipped":  skipped,
	})
}

// List handles GET /api/changes?status=new
func (h *ChangeHandler) List(c *gin.Context) {
	status := c.Query("status")
	HandleGetEnvelope(c, "data", func() (interface{}, error) {
		return h.changes.List(c.Request.Context(), status, 200)
	})
}

// Get handles GET /api/changes/:id
func (h *ChangeHandler) Get(c *gin.Context) {
	id := c.Param("id")
	HandleGetEnvelope(c, "data", func() (interface{}, error) {
		cr, err := h.changes.GetByID(c.Request.Context(), id)
		if err != nil {
			return nil, errors.NewNotFoundError("change request", id)
		}
		return cr, nil
	})
}
