//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"quill-ai-editor/internal/application/continuation"
	"quill-ai-editor/internal/config"
	"quill-ai-editor/internal/infrastructure/llm"
	"quill-ai-editor/internal/interfaces/http/handler"
	"quill-ai-editor/internal/interfaces/http/router"
	"quill-ai-editor/internal/workflow/chain"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		StorageSet,
		ContinuationSet,
		RouterSet,
	)
	return nil, nil, nil
}

// StorageSet 可选存储：Postgres 用量流水与 Redis 限流/缓存
var StorageSet = wire.NewSet(
	ProvidePostgresClient,
	ProvideRedisClient,
	ProvideUsageRepository,
)

// ContinuationSet 续写用例
var ContinuationSet = wire.NewSet(
	llm.NewEinoFactory,
	wire.Bind(new(chain.ChatModelFactory), new(*llm.EinoFactory)),
	ProvideUsageRecorder,
	continuation.NewWriter,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	handler.NewGenerateHandler,
	handler.NewStyleHandler,
	handler.NewUsageHandler,
	handler.NewHealthHandler,
	ProvideRateLimitMiddleware,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
