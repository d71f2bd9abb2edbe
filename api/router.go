package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lenshq/pagelens/api/handler"
	"github.com/lenshq/pagelens/api/middleware"
	"github.com/lenshq/pagelens/browser"
	"github.com/lenshq/pagelens/config"
	"github.com/lenshq/pagelens/content"
	"github.com/lenshq/pagelens/fetch"
	"github.com/lenshq/pagelens/pipeline"
	"github.com/lenshq/pagelens/store"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(
	mgr *browser.Manager,
	pipe *pipeline.Pipeline,
	fetcher *fetch.Fetcher,
	distiller *content.Distiller,
	completer pipeline.Completer,
	st *store.Store,
	cfg *config.Config,
	startTime time.Time,
) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(mgr, startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Analyze — the parameterized extraction/inference pipeline.
	protected.POST("/analyze", handler.Analyze(pipe))

	// Link analysis — fixed model, HTTP-first fetch.
	protected.POST("/analyze/link", handler.AnalyzeLink(fetcher, mgr, distiller, completer, cfg.Link))

	// Feedback
	protected.POST("/feedback", handler.PostFeedback(st))
	protected.GET("/feedback/:messageId", handler.GetFeedback(st))

	return r
}
