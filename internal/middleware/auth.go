package middleware

import (
	"net/http"
	"strings"

	"github.com/dropfall/backend/internal/admin"
	"github.com/gin-gonic/gin"
)

const (
	adminUsernameKey = "admin_username"
	adminSessionKey  = "admin_session"
)

// AdminAuth requires a valid admin bearer token and stores the session on
// the context.
func AdminAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			c.Abort()
			return
		}

		session, err := admin.ParseSessionToken(secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
			c.Abort()
			return
		}

		c.Set(adminUsernameKey, session.Username)
		c.Set(adminSessionKey, session)
		c.Next()
	}
}

// RequireRole rejects sessions that do not grant role. It must run after
// AdminAuth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := c.Get(adminSessionKey)
		s, _ := session.(*admin.Session)
		if !ok || s == nil || !s.HasRole(role) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient role"})
			c.Abort()
			return
		}
		c.Next()
	}
}
