// Package management serves the operational endpoints: health, usage counters and config.
package management

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ocigenai-gateway/internal/config"
	"ocigenai-gateway/internal/credential"
	common "ocigenai-gateway/internal/handlers/common"
	"ocigenai-gateway/internal/stats"
	"ocigenai-gateway/internal/tasks"
)

// CredentialStatus reports the state of the cached upstream credential.
type CredentialStatus interface {
	Status() credential.Status
}

// TaskLister reports the background jobs.
type TaskLister interface {
	List() []tasks.Info
}

// AdminAPIHandler provides health and management endpoints.
type AdminAPIHandler struct {
	cfg       *config.Manager
	creds     CredentialStatus
	usage     *stats.Recorder
	tasks     TaskLister
	startTime time.Time
}

func NewAdminAPIHandler(cfg *config.Manager, creds CredentialStatus, usage *stats.Recorder) *AdminAPIHandler {
	return &AdminAPIHandler{cfg: cfg, creds: creds, usage: usage, startTime: time.Now()}
}

// WithTasks makes the background jobs visible in /system.
func (h *AdminAPIHandler) WithTasks(t TaskLister) *AdminAPIHandler {
	h.tasks = t
	return h
}

// RegisterRoutes mounts the key protected endpoints on grp.
func (h *AdminAPIHandler) RegisterRoutes(grp *gin.RouterGroup) {
	grp.Use(h.requireAdmin)
	grp.GET("/usage", h.GetUsage)
	grp.DELETE("/usage", h.ResetUsage)
	grp.GET("/system", h.GetSystemInfo)
	grp.GET("/config", h.GetConfig)
	grp.POST("/config/reload", h.ReloadConfig)
}

// isAdminRequest accepts the management key as a bearer token or in X-Management-Key.
func (h *AdminAPIHandler) isAdminRequest(c *gin.Context) bool {
	cfg := h.cfg.Get()
	auth := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		if config.CheckManagementKey(cfg, strings.TrimSpace(auth[7:])) {
			return true
		}
	}
	return config.CheckManagementKey(cfg, strings.TrimSpace(c.GetHeader("X-Management-Key")))
}

func (h *AdminAPIHandler) requireAdmin(c *gin.Context) {
	if !h.isAdminRequest(c) {
		common.AbortWithError(c, http.StatusUnauthorized, "invalid_request_error", "invalid_management_key", "management key required")
		return
	}
	c.Next()
}
