package middleware

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminMiddleware guards the operational endpoints (cache stats, cache
// invalidation) with a static API key.
type AdminMiddleware struct {
	apiKey string
}

// NewAdminMiddleware reads the key from ADMIN_API_KEY. An empty key keeps
// the admin endpoints closed entirely.
func NewAdminMiddleware() *AdminMiddleware {
	return &AdminMiddleware{apiKey: os.Getenv("ADMIN_API_KEY")}
}

// RequireAdminAuth validates the admin API key from the Authorization
// bearer token or the X-API-Key header.
func (am *AdminMiddleware) RequireAdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if am.apiKey == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin endpoints are disabled"})
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) == 2 && tokenParts[0] == "Bearer" && tokenParts[1] == am.apiKey {
				c.Next()
				return
			}
		}

		if c.GetHeader("X-API-Key") == am.apiKey {
			c.Next()
			return
		}

		c.JSON(http.StatusUnauthorized, gin.H{"error": "valid admin API key required"})
		c.Abort()
	}
}
