package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"ocigenai-gateway/internal/monitoring"
)

func TestMetricsMiddlewareCountsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/v1/models", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", MetricsHandler)

	before := testutil.ToFloat64(monitoring.HTTPRequestsTotal.WithLabelValues("GET", "/v1/models", "2xx"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/models", nil))
	after := testutil.ToFloat64(monitoring.HTTPRequestsTotal.WithLabelValues("GET", "/v1/models", "2xx"))
	if after-before != 1 {
		t.Fatalf("Expected counter to grow by 1, got %v", after-before)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), "ocigw_http_requests_total") {
		t.Fatalf("Expected exposition to contain ocigw_http_requests_total")
	}
}
