package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// UserIDHeader carries the caller's identity, set by the fronting proxy
	UserIDHeader = "X-User-ID"
	userIDKey    = "userID"
	maxUserIDLen = 128
)

// RequireUser rejects requests without a usable user id header
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing " + UserIDHeader + " header",
			})
			return
		}
		if len(id) > maxUserIDLen || strings.ContainsAny(id, ": \t\r\n") {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "Invalid " + UserIDHeader + " header",
			})
			return
		}

		c.Set(userIDKey, id)
		c.Next()
	}
}

// UserID returns the id stored by RequireUser
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
