package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fieldlog/api/internal/models"
)

// RequireRole gates a route on the authenticated user's role. It must run
// after Auth; an unauthenticated request is a 401, a role mismatch a 403.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		if user.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}

		c.Next()
	}
}
