// Package server assembles the gin engine and the HTTP server around it.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ocigenai-gateway/internal/config"
	"ocigenai-gateway/internal/gateway"
	mgmt "ocigenai-gateway/internal/handlers/management"
	oh "ocigenai-gateway/internal/handlers/openai"
	mw "ocigenai-gateway/internal/middleware"
	"ocigenai-gateway/internal/stats"
)

// Dependencies encapsulates runtime services required to build the HTTP engine.
type Dependencies struct {
	Config      *config.Manager
	Dispatcher  *gateway.Dispatcher
	Credentials mgmt.CredentialStatus
	Usage       *stats.Recorder
	Tasks       mgmt.TaskLister
}

// BuildEngine constructs the gin engine serving the OpenAI-compatible API,
// health, metrics and management routes under the configured base path.
func BuildEngine(deps Dependencies) *gin.Engine {
	cfg := deps.Config.Get()
	engine := gin.New()
	applyStandardEngineSettings(engine, cfg)

	root := engine.Group(cfg.Server.BasePath)
	registerOpenAIRoutes(root, cfg, deps)

	admin := mgmt.NewAdminAPIHandler(deps.Config, deps.Credentials, deps.Usage)
	if deps.Tasks != nil {
		admin.WithTasks(deps.Tasks)
	}
	root.GET("/healthz", admin.GetHealth)
	root.HEAD("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	root.GET("/metrics", mw.MetricsHandler)
	admin.RegisterRoutes(root.Group("/admin"))
	return engine
}

func registerOpenAIRoutes(root *gin.RouterGroup, cfg *config.Config, deps Dependencies) {
	h := oh.New(deps.Dispatcher)
	v1 := root.Group("/v1")
	if cfg.RateLimit.Enabled {
		v1.Use(mw.RateLimiterAutoKey(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}
	v1.Use(mw.APIKeyAuth(deps.Config.Get))
	v1.POST("/chat/completions", h.ChatCompletions)
	v1.GET("/models", h.ListModels)
	v1.GET("/models/:model", h.GetModel)
}
