package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const sessionIDKey = "sessionId"

// SessionHeader carries the browser session identity across requests.
const SessionHeader = "X-Session-Id"

// Session resolves the caller's session ID from the X-Session-Id header,
// minting a fresh one when absent. Uploaded statements and underwriting runs
// are scoped to this identity.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(SessionHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(sessionIDKey, id)
		c.Writer.Header().Set(SessionHeader, id)
		c.Next()
	}
}

// SessionIDFromContext fetches the session ID stored by Session middleware.
func SessionIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(sessionIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
