package http

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SecretHeader carries the shared secret that authorizes API calls.
const SecretHeader = "X-Sync-Secret"

// RequireSharedSecret rejects requests whose X-Sync-Secret header does not
// match secret. An empty secret rejects everything.
func RequireSharedSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(SecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error: "invalid or missing " + SecretHeader,
				Code:  "unauthorized",
			})
			return
		}
		c.Next()
	}
}
