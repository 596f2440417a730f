package service

import (
	"context"
	"sync"
)

// LLMUsage 一次请求内 LLM 调用的 token 消耗累计。
// 由 eino callbacks 写入，应用层在请求结束后读取并落库。
type LLMUsage struct {
	mu               sync.Mutex
	model            string
	promptTokens     int
	completionTokens int
}

type usageCtxKey struct{}

// WithLLMUsage 在 context 中挂载用量累计器
func WithLLMUsage(ctx context.Context) (context.Context, *LLMUsage) {
	u := &LLMUsage{}
	return context.WithValue(ctx, usageCtxKey{}, u), u
}

// LLMUsageFromContext 返回 context 中的用量累计器，不存在时返回 nil
func LLMUsageFromContext(ctx context.Context) *LLMUsage {
	if ctx == nil {
		return nil
	}
	u, _ := ctx.Value(usageCtxKey{}).(*LLMUsage)
	return u
}

// Add 累加一次调用的消耗，nil 接收者安全
func (u *LLMUsage) Add(model string, promptTokens, completionTokens int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if model != "" {
		u.model = model
	}
	u.promptTokens += promptTokens
	u.completionTokens += completionTokens
}

// Snapshot 返回模型名与累计 token
func (u *LLMUsage) Snapshot() (model string, promptTokens, completionTokens int) {
	if u == nil {
		return "", 0, 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.model, u.promptTokens, u.completionTokens
}
