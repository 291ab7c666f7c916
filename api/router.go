package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldlead/renderbatch/api/handler"
	"github.com/fieldlead/renderbatch/api/middleware"
	"github.com/fieldlead/renderbatch/cache"
	"github.com/fieldlead/renderbatch/config"
	"github.com/fieldlead/renderbatch/content"
	"github.com/fieldlead/renderbatch/renderer"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(rd *renderer.Renderer, proc *content.Processor, cfg *config.Config, cc *cache.Cache, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(rd, startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Render
	protected.POST("/render", handler.Render(rd, proc, cc))

	// Batch
	protected.POST("/render/batch", handler.PostBatch(rd, proc))
	protected.GET("/render/batch/:id", handler.GetBatch())

	// Statistics
	protected.GET("/stats", handler.Stats(rd))
	protected.POST("/stats/reset", handler.ResetStats(rd))

	return r
}
