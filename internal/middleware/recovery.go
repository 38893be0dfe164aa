package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	common "ocigenai-gateway/internal/handlers/common"
)

// Recovery returns a panic recovery middleware
func Recovery() gin.HandlerFunc {
	return RecoveryWithWriter(nil)
}

// RecoveryWithWriter also hands the panic value to writer before answering.
func RecoveryWithWriter(writer gin.RecoveryFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				rid, _ := c.Get("request_id")
				log.WithFields(log.Fields{
					"error":      err,
					"stack":      string(debug.Stack()),
					"request_id": rid,
					"path":       c.Request.URL.Path,
					"method":     c.Request.Method,
					"client_ip":  c.ClientIP(),
				}).Error("panic_recovered")

				if writer != nil {
					writer(c, err)
				}
				if c.Writer.Written() {
					c.Abort()
					return
				}
				common.AbortWithError(c, http.StatusInternalServerError, "server_error", "internal_error", "internal gateway error")
			}
		}()

		c.Next()
	}
}
