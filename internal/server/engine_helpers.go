package server

import (
	"github.com/gin-gonic/gin"

	"ocigenai-gateway/internal/config"
	mw "ocigenai-gateway/internal/middleware"
)

// applyStandardEngineSettings installs the global middleware chain. Order matters:
// recovery wraps everything and the request id exists before anything logs.
func applyStandardEngineSettings(engine *gin.Engine, cfg *config.Config) {
	if !cfg.Logging.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	_ = engine.SetTrustedProxies(nil)
	engine.HandleMethodNotAllowed = true

	engine.Use(mw.Recovery(), mw.RequestID(), mw.RequestLogger(), mw.Metrics())
	engine.Use(mw.CORS(cfg.Server.CORSAllowedOrigins))
}
