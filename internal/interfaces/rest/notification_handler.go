package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/docuforge/backend/internal/application/services"
)

// NotificationHandler serves reviewer notifications
type NotificationHandler struct {
	svc *services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(svc *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// List handles GET /api/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	reviewer := GetReviewerFromContext(c)
	HandleGetEnvelope(c, "data", func() (interface{}, error) {
		return h.svc.ListMine(c.Request.Context(), reviewer)
	})
}

// MarkRead handles POST /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id := c.Param("id")
	reviewer := GetReviewerFromContext(c)

	HandleActionEnvelope(c, "Notification marked as read", func() error {
		return h.svc.MarkRead(c.Request.Context(), id, reviewer)
	})
}
