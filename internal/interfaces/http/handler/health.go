package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"quill-ai-editor/internal/config"
	"quill-ai-editor/internal/infrastructure/persistence/postgres"
	"quill-ai-editor/internal/infrastructure/persistence/redis"
)

// HealthChecker 依赖健康检查
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	version string
	checks  map[string]HealthChecker
	llm     config.LLMConfig
	timeout time.Duration
}

// NewHealthHandler 创建健康检查处理器，未启用的依赖传 nil
func NewHealthHandler(cfg *config.Config, pg *postgres.Client, redisClient *redis.Client) *HealthHandler {
	h := &HealthHandler{
		version: cfg.App.Version,
		checks:  make(map[string]HealthChecker),
		llm:     cfg.LLM,
		timeout: 2 * time.Second,
	}
	if pg != nil {
		h.checks["postgres"] = pg
	}
	if redisClient != nil {
		h.checks["redis"] = redisClient
	}
	return h
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}

// Live 存活检查接口
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Ready 就绪检查接口：已启用的存储必须可达，默认模型提供商必须已配置
// @Summary 就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	checks := make(map[string]*readinessCheck, len(h.checks)+1)
	ready := true

	for name, checker := range h.checks {
		start := time.Now()
		err := checker.HealthCheck(ctx)
		check := &readinessCheck{
			Status:    "ok",
			LatencyMs: time.Since(start).Milliseconds(),
		}
		if err != nil {
			check.Status = "error"
			check.Error = err.Error()
			ready = false
		}
		checks[name] = check
	}

	llmCheck := &readinessCheck{Status: "ok"}
	if err := h.llmConfigured(); err != "" {
		llmCheck.Status = "missing"
		llmCheck.Error = err
		ready = false
	}
	checks["llm"] = llmCheck

	resp := readinessResponse{Status: "ok", Checks: checks}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HealthHandler) llmConfigured() string {
	if _, _, err := h.llm.Resolve(""); err != nil {
		return err.Error()
	}
	return ""
}
