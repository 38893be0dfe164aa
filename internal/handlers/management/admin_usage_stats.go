package management

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "ocigenai-gateway/internal/errors"
	common "ocigenai-gateway/internal/handlers/common"
	"ocigenai-gateway/internal/stats"
)

// GetUsage returns per-model usage counters
// GET /admin/usage
func (h *AdminAPIHandler) GetUsage(c *gin.Context) {
	if h.usage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "usage stats disabled"})
		return
	}
	snap, err := h.usage.Snapshot(c.Request.Context())
	if err != nil {
		common.AbortWithGatewayError(c, apperrors.Internal(err))
		return
	}
	var total stats.ModelUsage
	for _, m := range snap {
		total.Requests += m.Requests
		total.Errors += m.Errors
		total.PromptTokens += m.PromptTokens
		total.CompletionTokens += m.CompletionTokens
		total.TotalTokens += m.TotalTokens
	}
	total.Model = "*"
	c.JSON(http.StatusOK, gin.H{"models": snap, "total": total})
}

// ResetUsage clears all counters
// DELETE /admin/usage
func (h *AdminAPIHandler) ResetUsage(c *gin.Context) {
	if h.usage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "usage stats disabled"})
		return
	}
	if err := h.usage.Reset(c.Request.Context()); err != nil {
		common.AbortWithGatewayError(c, apperrors.Internal(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "usage counters reset"})
}
