package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORS provides Cross-Origin Resource Sharing support for the OpenAI routes.
// Management routes under /admin never get CORS headers. An empty allow list means any origin.
func CORS(allowed []string) gin.HandlerFunc {
	origins := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = struct{}{}
		}
	}
	return func(c *gin.Context) {
		if strings.Contains(c.Request.URL.Path, "/admin") {
			c.Next()
			return
		}

		origin := "*"
		if len(origins) > 0 {
			reqOrigin := c.GetHeader("Origin")
			if _, ok := origins[reqOrigin]; !ok {
				c.Next()
				return
			}
			origin = reqOrigin
			c.Writer.Header().Add("Vary", "Origin")
		}
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "false")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID, OpenAI-Organization, OpenAI-Project")
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		h.Set("Access-Control-Expose-Headers", "X-Request-ID, X-Gateway-Clamped-Params, Retry-After")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
