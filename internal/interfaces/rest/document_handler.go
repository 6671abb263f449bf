package rest

import (
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/docuforge/backend/internal/infrastructure/persistence"
	"github.com/docuforge/backend/pkg/errors"
	"github.com/docuforge/backend/pkg/utils"
)

// DocumentHandler serves generated document revisions
type DocumentHandler struct {
	documents *persistence.DocumentRepository
	txManager *persistence.TransactionManager
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(documents *persistence.DocumentRepository, txManager *persistence.TransactionManager) *DocumentHandler {
	return &DocumentHandler{documents: documents, txManager: txManager}
}

// Get handles GET /api/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	id := c.Param("id")
	HandleGetEnvelope(c, "data", func() (interface{}, error) {
		if !utils.IsValidUUID(id) {
			return nil, errors.NewValidationError("id", "must be a UUID")
		}
		doc, err := h.documents.GetByID(c.Request.Context(), h.txManager.ExecutorFor(c.Request.Context()), id)
		if err != nil {
			return nil, errors.NewNotFoundError("document", id)
		}
		return doc, nil
	})
}

// Download handles GET /api/documents/:id/download, streaming the rendered
// .docx artifact.
func (h *DocumentHandler) Download(c *gin.Context) {
	id := c.Param("id")
	if !utils.IsValidUUID(id) {
		RespondAppError(c, errors.NewValidationError("id", "must be a UUID"))
		return
	}

	doc, err := h.documents.GetByID(c.Request.Context(), h.txManager.ExecutorFor(c.Request.Context()), id)
	if err != nil {
		RespondAppError(c, errors.NewNotFoundError("document", id))
		return
	}
	if doc.FilePath == "" {
		RespondAppError(c, errors.NewNotFoundError("document file", id))
		return
	}
	if _, err := os.Stat(doc.FilePath); err != nil {
		RespondAppError(c, errors.NewNotFoundError("document file", id))
		return
	}

	c.FileAttachment(doc.FilePath, filepath.Base(doc.FilePath))
}
