package common

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "ocigenai-gateway/internal/errors"
	"ocigenai-gateway/internal/models"
	"ocigenai-gateway/internal/streaming"
)

// PrepareSSE sets standard headers for SSE and returns writer/ flusher pair.
func PrepareSSE(c *gin.Context) (gin.ResponseWriter, http.Flusher) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	w := c.Writer
	fl, _ := w.(http.Flusher)
	return w, fl
}

// SSEEmitter writes relay output to a gin response. Headers go out with the first frame,
// so a request that fails before any content can still be answered with a JSON error.
type SSEEmitter struct {
	c       *gin.Context
	w       gin.ResponseWriter
	flusher http.Flusher
}

var _ streaming.Emitter = (*SSEEmitter)(nil)

func NewSSEEmitter(c *gin.Context) *SSEEmitter {
	return &SSEEmitter{c: c}
}

// Started reports whether the SSE response has been committed.
func (e *SSEEmitter) Started() bool { return e.w != nil }

func (e *SSEEmitter) start() {
	if e.w == nil {
		e.w, e.flusher = PrepareSSE(e.c)
	}
}

func (e *SSEEmitter) Chunk(chunk *models.StreamChunk) error {
	e.start()
	return SSEWriteData(e.w, e.flusher, chunk)
}

// Error writes the terminal error event. No [DONE] marker follows it.
func (e *SSEEmitter) Error(ge *apperrors.GatewayError) error {
	e.start()
	return SSEWriteData(e.w, e.flusher, ge.Envelope())
}

func (e *SSEEmitter) Done() error {
	e.start()
	return SSEWriteDone(e.w, e.flusher)
}
