package rest

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docuforge/backend/internal/application/services"
	"github.com/docuforge/backend/pkg/errors"
)

// AuthHandler handles authentication API endpoints
type AuthHandler struct {
	svc *services.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(svc *services.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateReviewerRequest represents an account creation request
type CreateReviewerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !BindJSON(c, &req) {
		return
	}

	result, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      result.Token,
		"reviewer":   result.Reviewer,
		"expires_at": result.ExpiresAt,
	})
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so the
// server side only acknowledges; the client discards the token.
func (h *AuthHandler) Logout(c *gin.Context) {
	if reviewer := GetReviewerFromContext(c); reviewer != nil {
		log.Printf("👋 %s logged out", reviewer.Email)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	reviewer := GetReviewerFromContext(c)
	if reviewer == nil {
		RespondAppError(c, errors.NewUnauthorizedError("not authenticated"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviewer": reviewer})
}

// CreateReviewer handles POST /api/auth/reviewers (admin only)
func (h *AuthHandler) CreateReviewer(c *gin.Context) {
	var req CreateReviewerRequest
	if !BindJSON(c, &req) {
		return
	}

	HandleCreateEnvelope(c, "id", "Reviewer account created", func() (interface{}, error) {
		return h.svc.CreateReviewer(c.Request.Context(), req.Name, req.Email, req.Password, req.Role)
	})
}
