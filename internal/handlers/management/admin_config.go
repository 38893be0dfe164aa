package management

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"ocigenai-gateway/internal/config"
)

const redacted = "***"

// GetConfig returns the live configuration with secrets masked.
func (h *AdminAPIHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, sanitize(h.cfg.Get()))
}

// ReloadConfig re-reads the configuration file and applies hot-reloadable settings.
func (h *AdminAPIHandler) ReloadConfig(c *gin.Context) {
	if err := h.cfg.Reload(); err != nil {
		log.WithError(err).Warn("config reload via management API failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "config reloaded", "path": h.cfg.Path()})
}

func sanitize(cfg *config.Config) config.Config {
	out := *cfg
	out.Auth.APIKeys = maskAll(cfg.Auth.APIKeys)
	out.Auth.APIKeyHashes = maskAll(cfg.Auth.APIKeyHashes)
	out.Auth.ManagementKey = mask(cfg.Auth.ManagementKey)
	out.Auth.ManagementKeyHash = mask(cfg.Auth.ManagementKeyHash)
	out.Credential.StaticToken = mask(cfg.Credential.StaticToken)
	out.Stats.RedisPassword = mask(cfg.Stats.RedisPassword)
	out.Stats.PostgresDSN = mask(cfg.Stats.PostgresDSN)
	out.Stats.MongoURI = mask(cfg.Stats.MongoURI)
	return out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return redacted
}

func maskAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i := range in {
		out[i] = redacted
	}
	return out
}
