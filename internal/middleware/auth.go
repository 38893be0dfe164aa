package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"ocigenai-gateway/internal/config"
	common "ocigenai-gateway/internal/handlers/common"
)

// Context keys set by APIKeyAuth.
const (
	ContextKeyAPIKey       = "api_key"
	ContextKeyOrganization = "openai_organization"
	ContextKeyProject      = "openai_project"
)

const (
	defaultOrganization = "org-default"
	defaultProject      = "proj-default"
)

var (
	legacyKeyPattern  = regexp.MustCompile(`^sk-[A-Za-z0-9]{48}$`)
	projectKeyPattern = regexp.MustCompile(`^sk-(proj|svcacct)-[A-Za-z0-9_-]{40,200}$`)
)

// IsOpenAIFormatKey reports whether key looks like an OpenAI secret key.
func IsOpenAIFormatKey(key string) bool {
	return legacyKeyPattern.MatchString(key) || projectKeyPattern.MatchString(key)
}

// APIKeyAuth authenticates clients by bearer key. The configuration is read on every
// request so reloaded keys take effect immediately.
func APIKeyAuth(current func() *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyOrganization, headerOr(c, "OpenAI-Organization", defaultOrganization))
		c.Set(ContextKeyProject, headerOr(c, "OpenAI-Project", defaultProject))

		cfg := current()
		if cfg == nil || !cfg.Auth.Enabled {
			c.Next()
			return
		}

		auth := strings.TrimSpace(c.GetHeader("Authorization"))
		if len(auth) <= 7 || !strings.EqualFold(auth[:7], "bearer ") {
			respondUnauthorized(c, "You didn't provide an API key. You need to provide your API key in an Authorization header using Bearer auth (i.e. Authorization: Bearer YOUR_KEY).")
			return
		}
		key := strings.TrimSpace(auth[7:])

		if cfg.Auth.RequireOpenAIFormat && !IsOpenAIFormatKey(key) {
			respondUnauthorized(c, "Incorrect API key provided.")
			return
		}
		switch {
		case config.CheckClientKey(cfg, key):
		case !config.HasClientKeys(cfg) && cfg.Auth.RequireOpenAIFormat:
			// Format checked above; any well-formed key is accepted.
		default:
			respondUnauthorized(c, "Incorrect API key provided.")
			return
		}

		c.Set(ContextKeyAPIKey, key)
		c.Next()
	}
}

func headerOr(c *gin.Context, name, fallback string) string {
	if v := strings.TrimSpace(c.GetHeader(name)); v != "" {
		return v
	}
	return fallback
}

func respondUnauthorized(c *gin.Context, message string) {
	log.WithFields(log.Fields{
		"path": c.Request.URL.Path,
		"ip":   c.ClientIP(),
	}).Debug("client authentication failed")
	common.AbortWithError(c, http.StatusUnauthorized, "invalid_request_error", "invalid_api_key", message)
}
