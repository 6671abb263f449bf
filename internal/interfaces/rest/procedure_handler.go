package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/docuforge/backend/internal/infrastructure/persistence"
	"github.com/docuforge/backend/pkg/errors"
)

// ProcedureHandler serves the documented-procedure catalog
type ProcedureHandler struct {
	procedures *persistence.ProcedureRepository
	documents  *persistence.DocumentRepository
}

// NewProcedureHandler creates a new ProcedureHandler
func NewProcedureHandler(procedures *persistence.ProcedureRepository, documents *persistence.DocumentRepository) *ProcedureHandler {
	return &ProcedureHandler{procedures: procedures, documents: documents}
}

// List handles GET /api/procedures
func (h *ProcedureHandler) List(c *gin.Context) {
	HandleGetEnvelope(c, "data", func() (interface{}, error) {
		return h.procedures.List(c.Request.Context(), 500)
	})
}

// Get handles GET /api/procedures/:id
func (h *ProcedureHandler) Get(c *gin.Context) {
	id := c.Param("id")
	HandleGetEnvelope(c, "data", func() (interface{}, error) {
		proc, err := h.procedures.GetByID(c.Request.Context(), id)
		if err != nil {
			return nil, errors.NewNotFoundError("procedure", id)
		}
		return proc, nil
	})
}

// Documents handles GET /api/procedures/:id/documents
func (h *ProcedureHandler) Documents(c *gin.Context) {
	id := c.Param("id")
	HandleGetEnvelope(c, "data", func() (interface{}, error) {
		return h.documents.ListByProcedure(c.Request.Context(), id)
	})
}

// History handles GET /api/procedures/:id/history
func (h *ProcedureHandler) History(c *gin.Context) {
	id := c.Param("id")
	HandleGetEnvelope(c, "data", func() (interface{}, error) {
		return h.documents.VersionHistory(c.Request.Context(), id)
	})
}
