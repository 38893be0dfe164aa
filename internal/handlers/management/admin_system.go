package management

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"ocigenai-gateway/internal/constants"
)

// GetHealth reports liveness and the credential cache state. A credential that has
// not been fetched yet is not a failure: it is acquired on the first request.
func (h *AdminAPIHandler) GetHealth(c *gin.Context) {
	body := gin.H{
		"status":    "ok",
		"version":   constants.Version,
		"timestamp": time.Now().Unix(),
	}
	if h.creds != nil {
		st := h.creds.Status()
		cred := gin.H{"source": st.Source, "valid": st.Valid}
		if !st.Expiry.IsZero() {
			cred["expiry"] = st.Expiry.UTC().Format(time.RFC3339)
		}
		body["credential"] = cred
	}
	c.JSON(http.StatusOK, body)
}

// GetSystemInfo returns build and runtime information
func (h *AdminAPIHandler) GetSystemInfo(c *gin.Context) {
	body := gin.H{
		"version":    constants.GetFullVersion(),
		"go_version": runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
		"uptime":     time.Since(h.startTime).Seconds(),
		"timestamp":  time.Now().Unix(),
	}
	if h.tasks != nil {
		body["tasks"] = h.tasks.List()
	}
	c.JSON(http.StatusOK, body)
}
