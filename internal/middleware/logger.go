package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"ocigenai-gateway/internal/logging"
)

// RequestLogger logs HTTP requests
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		modelVal, _ := c.Get("model")
		orgVal, _ := c.Get(ContextKeyOrganization)
		projVal, _ := c.Get(ContextKeyProject)
		extras := log.Fields{
			"status":       status,
			"latency_ms":   logging.DurationMS(time.Since(start)),
			"user_agent":   c.Request.UserAgent(),
			"model":        modelVal,
			"organization": orgVal,
			"project":      projVal,
			"error_kind":   logging.ErrorKind(status, len(c.Errors) > 0),
		}
		if kind, ok := c.Get(logging.ContextKeyGatewayErrorKind); ok {
			extras["gateway_error"] = kind
		}
		entry := logging.WithReq(c, extras)
		switch {
		case status >= 500:
			entry.Warn("http_request")
		default:
			entry.Info("http_request")
		}
	}
}
