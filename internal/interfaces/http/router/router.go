// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quill-ai-editor/internal/config"
	"quill-ai-editor/internal/interfaces/http/handler"
	"quill-ai-editor/internal/interfaces/http/middleware"
)

// Handlers 路由依赖的处理器
type Handlers struct {
	Generate *handler.GenerateHandler
	Style    *handler.StyleHandler
	Usage    *handler.UsageHandler
	Health   *handler.HealthHandler
}

// Router HTTP 路由器
type Router struct {
	engine    *gin.Engine
	cfg       *config.Config
	handlers  *Handlers
	rateLimit gin.HandlerFunc
}

// New 创建路由器，rateLimit 只作用于生成接口
func New(cfg *config.Config, handlers *Handlers, rateLimit gin.HandlerFunc) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if rateLimit == nil {
		rateLimit = middleware.RateLimit(cfg.Security.RateLimit, nil)
	}

	r := &Router{
		engine:    gin.New(),
		cfg:       cfg,
		handlers:  handlers,
		rateLimit: rateLimit,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.CORS(r.cfg.Security.CORS))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name, "/health", "/live", "/ready", r.metricsPath()))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}
}

func (r *Router) setupRoutes() {
	h := r.handlers

	// 系统端点
	r.engine.GET("/health", h.Health.Health)
	r.engine.GET("/ready", h.Health.Ready)
	r.engine.GET("/live", h.Health.Live)

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.metricsPath(), gin.WrapH(promhttp.Handler()))
	}

	// 编辑器生成接口
	api := r.engine.Group("/api")
	{
		api.POST("/generate", r.rateLimit, h.Generate.Generate)
	}

	v1 := r.engine.Group("/v1")
	{
		v1.GET("/styles", h.Style.ListStyles)
		v1.GET("/usage", h.Usage.Summary)
	}
}

func (r *Router) metricsPath() string {
	if p := r.cfg.Observability.Metrics.Path; p != "" {
		return p
	}
	return "/metrics"
}
