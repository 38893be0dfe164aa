package openai

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "ocigenai-gateway/internal/errors"
	common "ocigenai-gateway/internal/handlers/common"
)

// GET /v1/models
func (h *Handler) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, h.dispatcher.Models())
}

// GET /v1/models/:model
func (h *Handler) GetModel(c *gin.Context) {
	id := c.Param("model")
	for _, m := range h.dispatcher.Models().Data {
		if m.ID == id {
			c.JSON(http.StatusOK, m)
			return
		}
	}
	common.AbortWithGatewayError(c, apperrors.ModelNotFound(id))
}
