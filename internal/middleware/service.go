package middleware

import (
	"crypto/subtle" // Constant time comparison
	"net/http"      // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework
)

// ServiceTokenHeader carries the shared secret of internal callers
const ServiceTokenHeader = "X-Service-Token"

// ServiceTokenMiddleware admits only callers presenting the configured service token.
// An empty token disables the guarded routes.
func ServiceTokenMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Internal endpoints disabled"})
			return
		}
		got := c.GetHeader(ServiceTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
