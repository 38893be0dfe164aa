package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"ocigenai-gateway/internal/upstream"
)

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Generate request ID when not provided", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		var fromCtx string
		router.GET("/test", func(c *gin.Context) {
			rid, exists := c.Get("request_id")
			if !exists || rid == "" {
				t.Error("Expected request_id to be set in context")
			}
			fromCtx = upstream.RequestID(c.Request.Context())
			c.String(200, "OK")
		})

		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		responseID := w.Header().Get("X-Request-ID")
		if len(responseID) != 32 {
			t.Errorf("Expected request ID length 32, got %d", len(responseID))
		}
		if fromCtx != responseID {
			t.Errorf("request context carries %q, header %q", fromCtx, responseID)
		}
	})

	t.Run("Use provided request ID", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			rid, _ := c.Get("request_id")
			if rid != "custom-request-id" {
				t.Errorf("Expected 'custom-request-id', got %v", rid)
			}
			c.String(200, "OK")
		})

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("X-Request-ID", "custom-request-id")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get("X-Request-ID"); got != "custom-request-id" {
			t.Errorf("Expected 'custom-request-id' in response header, got %s", got)
		}
	})

	t.Run("Replace oversized request ID", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) { c.String(200, "OK") })

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("X-Request-ID", strings.Repeat("a", 200))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get("X-Request-ID"); len(got) != 32 {
			t.Errorf("Expected generated request ID, got %q", got)
		}
	})
}
