package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "ocigenai-gateway/internal/errors"
	common "ocigenai-gateway/internal/handlers/common"
)

func TestRequestLoggerLabelsLocalAndGatewayErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hook := test.NewGlobal()
	defer hook.Reset()
	prev := log.GetLevel()
	log.SetLevel(log.InfoLevel)
	defer log.SetLevel(prev)

	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/bad", func(c *gin.Context) {
		common.AbortWithGatewayError(c, apperrors.InvalidParameter("temperature", "too hot"))
	})
	r.GET("/upstream", func(c *gin.Context) {
		common.AbortWithGatewayError(c, &apperrors.UpstreamStatusError{Status: http.StatusServiceUnavailable})
	})
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := []struct {
		path      string
		errorKind string
		gateway   any
	}{
		{"/bad", "client_error", "invalid_parameter"},
		{"/upstream", "server_error", "upstream_transport"},
		{"/ok", "ok", nil},
	}
	for _, tc := range cases {
		hook.Reset()
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))

		entry := hook.LastEntry()
		require.NotNil(t, entry, tc.path)
		assert.Equal(t, "http_request", entry.Message)
		assert.Equal(t, tc.errorKind, entry.Data["error_kind"], tc.path)
		assert.Equal(t, tc.gateway, entry.Data["gateway_error"], tc.path)
	}
}
