package wire

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"quill-ai-editor/internal/application/continuation"
	"quill-ai-editor/internal/config"
	"quill-ai-editor/internal/domain/repository"
	"quill-ai-editor/internal/infrastructure/persistence/postgres"
	"quill-ai-editor/internal/infrastructure/persistence/redis"
	"quill-ai-editor/internal/interfaces/http/middleware"
	"quill-ai-editor/pkg/logger"
)

const usageSummaryTTL = time.Minute

// ProvidePostgresClient 提供 PostgreSQL 客户端，未启用时返回 nil
func ProvidePostgresClient(ctx context.Context, cfg *config.Config) (*postgres.Client, func(), error) {
	pgCfg := cfg.Database.Postgres
	if !pgCfg.Enabled {
		logger.Info(ctx, "postgres disabled, usage ledger off")
		return nil, func() {}, nil
	}

	client, err := postgres.NewClient(&pgCfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}

	if pgCfg.AutoMigrate {
		if err := client.Migrate(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端，未启用时返回 nil
func ProvideRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		logger.Info(ctx, "redis disabled, rate limiting and summary cache off")
		return nil, func() {}, nil
	}

	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideUsageRepository 提供用量流水仓储
func ProvideUsageRepository(pg *postgres.Client) repository.GenerationUsageRepository {
	if pg == nil {
		return nil
	}
	return postgres.NewGenerationUsageRepository(pg)
}

// ProvideUsageRecorder 提供用量记录器，Redis 可用时缓存汇总结果
func ProvideUsageRecorder(repo repository.GenerationUsageRepository, redisClient *redis.Client) *continuation.UsageRecorder {
	recorder := continuation.NewUsageRecorder(repo)
	if redisClient != nil {
		recorder.WithCache(redis.NewCache(redisClient), usageSummaryTTL)
	}
	return recorder
}

// ProvideRateLimitMiddleware 提供生成接口限流中间件
func ProvideRateLimitMiddleware(cfg *config.Config, redisClient *redis.Client) gin.HandlerFunc {
	return middleware.NewRateLimitMiddleware(cfg.Security.RateLimit, redisClient)
}
