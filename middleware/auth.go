package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// userIDKey is the gin context key holding the resolved identity
const userIDKey = "userID"

// Identity resolves the caller's identity from the X-User-ID header. The
// session subsystem that mints these values is an external collaborator;
// here the identity is an opaque string key. Requests without one are
// rejected uniformly with 401.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Unauthorized",
			})
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the identity resolved by the Identity middleware
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
