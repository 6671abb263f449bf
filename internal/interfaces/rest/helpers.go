package rest

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docuforge/backend/pkg/auth"
	"github.com/docuforge/backend/pkg/errors"
)

// ContextKeyReviewer is the gin context key carrying the reviewer session
const ContextKeyReviewer = "reviewer"

// GetReviewerFromContext extracts the authenticated reviewer from gin.Context
func GetReviewerFromContext(c *gin.Context) *auth.ReviewerSession {
	v, exists := c.Get(ContextKeyReviewer)
	if !exists {
		return nil
	}
	session := v.(auth.ReviewerSession)
	return &session
}

// RespondAppError sends a standardised JSON error response using pkg/errors
func RespondAppError(c *gin.Context, err error) {
	code := errors.GetHTTPStatus(err)
	errorCode := errors.GetErrorCode(err)
	message := err.Error()

	if code >= 500 {
		log.Printf("❌ ERROR [%d] %s %s: %s", code, c.Request.Method, c.Request.URL.Path, message)
	}

	c.JSON(code, gin.H{
		"error":   message,
		"message": message,
		"code":    errorCode,
		"data":    nil,
	})
}

// BindJSON binds JSON and returns true if successful. If failed, it sends bad request error.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		RespondAppError(c, errors.NewValidationError("body", err.Error()))
		return false
	}
	return true
}

// HandleGetEnvelope executes a read action and returns the result wrapped in a JSON key
// Response: { [key]: result }
func HandleGetEnvelope(c *gin.Context, key string, action func() (interface{}, error)) {
	result, err := action()
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{key: result})
}

// HandleCreateEnvelope executes a create action and returns { message, [key]: value }
func HandleCreateEnvelope(c *gin.Context, key, successMsg string, action func() (interface{}, error)) {
	result, err := action()
	if err != nil {
		RespondAppError(c, err)
		return
	}
	response := gin.H{"message": successMsg}
	if key != "" {
		response[key] = result
	}
	c.JSON(http.StatusCreated, response)
}

// HandleActionEnvelope executes a state-changing action and returns a success message
func HandleActionEnvelope(c *gin.Context, successMsg string, action func() error) {
	if err := action(); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": successMsg})
}
