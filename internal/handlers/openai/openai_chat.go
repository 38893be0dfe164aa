package openai

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"ocigenai-gateway/internal/gateway"
	common "ocigenai-gateway/internal/handlers/common"
	"ocigenai-gateway/internal/logging"
	"ocigenai-gateway/internal/streaming"
	"ocigenai-gateway/internal/translator"
)

// ChatCompletions handles POST /v1/chat/completions by dispatching the request to OCI.
func (h *Handler) ChatCompletions(c *gin.Context) {
	req, err := decodeChatRequest(c)
	if err != nil {
		common.AbortWithGatewayError(c, err)
		return
	}
	p, err := h.dispatcher.Prepare(req)
	if err != nil {
		common.AbortWithGatewayError(c, err)
		return
	}
	if len(p.Adjustments) > 0 {
		c.Header(ClampedParamsHeader, formatAdjustments(p.Adjustments))
	}
	c.Set("model", p.Target.ModelID)

	if req.Stream {
		h.streamChat(c, p)
		return
	}
	resp, err := h.dispatcher.Complete(c.Request.Context(), p)
	if err != nil {
		common.AbortWithGatewayError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) streamChat(c *gin.Context, p *gateway.Prepared) {
	em := common.NewSSEEmitter(c)
	_, err := h.dispatcher.Stream(c.Request.Context(), p, em)
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, streaming.ErrClientGone), c.Request.Context().Err() != nil:
		logging.WithReq(c, log.Fields{"model": p.Target.ModelID}).Info("client disconnected during stream")
		c.Abort()
	case em.Started():
		// The error event was already written in-stream.
		c.Abort()
	default:
		common.AbortWithGatewayError(c, err)
	}
}

// formatAdjustments renders "param=applied" pairs for the clamped-params header.
func formatAdjustments(adj []translator.ParamAdjustment) string {
	parts := make([]string, 0, len(adj))
	for _, a := range adj {
		parts = append(parts, a.Param+"="+strconv.FormatFloat(a.Applied, 'g', -1, 64))
	}
	return strings.Join(parts, ",")
}
