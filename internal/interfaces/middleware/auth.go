package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docuforge/backend/pkg/auth"
)

// ContextKeyReviewer mirrors the key used by the rest package
const ContextKeyReviewer = "reviewer"

func respondUnauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error":   "Unauthorized",
		"message": message,
		"code":    "UNAUTHORIZED",
		"data":    nil,
	})
	c.Abort()
}

// RequireAuth validates the JWT bearer token and stores the reviewer
// session in the context.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			respondUnauthorized(c, "No authorization token provided")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			respondUnauthorized(c, "Invalid authorization header format")
			return
		}

		claims, err := auth.ValidateToken(parts[1])
		if err != nil {
			respondUnauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(ContextKeyReviewer, claims.Reviewer)
		c.Next()
	}
}

// RequireAdmin checks that the authenticated reviewer is an administrator
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get(ContextKeyReviewer)
		if !exists {
			respondUnauthorized(c, "Reviewer not authenticated")
			return
		}

		reviewer := v.(auth.ReviewerSession)
		if !reviewer.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Forbidden",
				"message": "Only administrators can access this resource",
				"code":    "FORBIDDEN",
				"data":    nil,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
