package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/damoang/angple-editorial/internal/common"
	"github.com/gin-gonic/gin"
)

// BearerSecret authenticates scheduled triggers with "Authorization: Bearer <secret>".
// An empty configured secret rejects every request.
func BearerSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			common.ErrorResponse(c, http.StatusUnauthorized, "cron secret is not configured", nil)
			c.Abort()
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			common.ErrorResponse(c, http.StatusUnauthorized, "Bearer token required", nil)
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(secret)) != 1 {
			common.ErrorResponse(c, http.StatusUnauthorized, "invalid cron secret", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}
