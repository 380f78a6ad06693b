package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fieldlog/api/internal/cache"
	"fieldlog/api/internal/config"
	"fieldlog/api/internal/models"
	"fieldlog/api/internal/security"
	"fieldlog/api/internal/service"
)

const currentUserKey = "current_user"

// Auth resolves the bearer token to a live user and attaches it to the
// request context. A token whose user has since been deleted fails here;
// that is the only form of revocation the system tracks.
func Auth(cfg config.SecurityConfig, users service.UserStore, userCache *cache.UserCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := security.ParseToken(tokenStr, cfg.JWTSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		ctx := c.Request.Context()

		user, cached := userCache.Get(ctx, claims.UserID)
		if !cached {
			var found bool
			user, found, err = users.FindByID(ctx, claims.UserID)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
				return
			}
			if !found {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account no longer exists"})
				return
			}
			_ = userCache.Set(ctx, user)
		}

		c.Set(currentUserKey, user.Sanitized())
		c.Next()
	}
}

// CurrentUser returns the user attached by Auth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	val, exists := c.Get(currentUserKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := val.(models.User)
	return user, ok
}
