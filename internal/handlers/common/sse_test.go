package common

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "ocigenai-gateway/internal/errors"
	"ocigenai-gateway/internal/models"
)

type flushRecorder struct {
	http.ResponseWriter
	flushed bool
}

func (f *flushRecorder) Flush() { f.flushed = true }

func TestSSEWriteDataAndDone(t *testing.T) {
	rr := httptest.NewRecorder()
	fr := &flushRecorder{ResponseWriter: rr}
	payload := map[string]any{"hello": "world"}
	if err := SSEWriteData(fr, fr, payload); err != nil {
		t.Fatalf("SSEWriteData: %v", err)
	}
	if !fr.flushed {
		t.Fatalf("expected flush after event")
	}
	if got := rr.Body.String(); got != "data: {\"hello\":\"world\"}\n\n" {
		t.Fatalf("unexpected body: %q", got)
	}
	if err := SSEWriteDone(fr, fr); err != nil {
		t.Fatalf("SSEWriteDone: %v", err)
	}
	if !bytes.HasSuffix(rr.Body.Bytes(), []byte("data: [DONE]\n\n")) {
		t.Fatalf("missing DONE marker: %s", rr.Body.String())
	}
}

func TestSSEEmitterIsLazy(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)

	em := NewSSEEmitter(c)
	if em.Started() {
		t.Fatalf("emitter must not start before the first frame")
	}
	if c.Writer.Written() {
		t.Fatalf("nothing should be written yet")
	}

	chunk := &models.StreamChunk{ID: "chatcmpl-1", Object: "chat.completion.chunk", Model: "m"}
	if err := em.Chunk(chunk); err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if err := em.Done(); err != nil {
		t.Fatalf("Done: %v", err)
	}
	if !em.Started() {
		t.Fatalf("emitter should be started")
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, "data: {\"id\":\"chatcmpl-1\"") || !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestSSEEmitterErrorEvent(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)

	em := NewSSEEmitter(c)
	if err := em.Error(apperrors.MidStream(nil)); err != nil {
		t.Fatalf("Error: %v", err)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, "data: {\"error\":{") {
		t.Fatalf("unexpected body: %s", body)
	}
	if strings.Contains(body, "[DONE]") {
		t.Fatalf("error event must not be followed by [DONE]: %s", body)
	}
}
