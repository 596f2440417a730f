package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"quill-ai-editor/internal/config"
	"quill-ai-editor/internal/infrastructure/persistence/redis"
	"quill-ai-editor/internal/interfaces/http/dto"
	"quill-ai-editor/pkg/errors"
	"quill-ai-editor/pkg/logger"
	"quill-ai-editor/pkg/metrics"
)

const (
	// RateLimitLimitHeader 窗口内允许的请求数
	RateLimitLimitHeader = "X-RateLimit-Limit"
	// RateLimitRemainingHeader 窗口内剩余请求数
	RateLimitRemainingHeader = "X-RateLimit-Remaining"
)

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
}

// RateLimit 按客户端 IP 与路由限流。限流器故障时放行。
func RateLimit(cfg config.RateLimitConfig, limiter RateLimiter) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	if cfg.Requests <= 0 {
		cfg.Requests = 30
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	limit := strconv.Itoa(cfg.Requests)

	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		key := redis.BuildRateLimitKey(path, c.ClientIP())

		allowed, remaining, err := limiter.Allow(c.Request.Context(), key, cfg.Requests, cfg.Window)
		if err != nil {
			logger.Warn(c.Request.Context(), "rate limiter unavailable, allowing request", "error", err.Error())
			c.Next()
			return
		}

		c.Header(RateLimitLimitHeader, limit)
		c.Header(RateLimitRemainingHeader, strconv.Itoa(remaining))

		if !allowed {
			metrics.RateLimitRejected.WithLabelValues(path).Inc()
			c.Header("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.GenerateErrorResponse{
				Error: errors.ErrTooManyRequests.Message,
			})
			return
		}

		c.Next()
	}
}

// NewRateLimitMiddleware 使用 Redis 滑动窗口创建限流中间件，未启用 Redis 时不限流
func NewRateLimitMiddleware(cfg config.RateLimitConfig, client *redis.Client) gin.HandlerFunc {
	if client == nil {
		return RateLimit(cfg, nil)
	}
	return RateLimit(cfg, redis.NewRateLimiter(client))
}
