package middleware

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/gin-gonic/gin"

	"ocigenai-gateway/internal/upstream"
)

// RequestID assigns every request an id, echoes it in X-Request-ID and carries it
// on the request context so the upstream call is tagged with the same id.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" || len(rid) > 128 {
			var b [16]byte
			_, _ = rand.Read(b[:])
			rid = hex.EncodeToString(b[:])
		}
		c.Set("request_id", rid)
		c.Writer.Header().Set("X-Request-ID", rid)
		c.Request = c.Request.WithContext(upstream.WithRequestID(c.Request.Context(), rid))
		c.Next()
	}
}
