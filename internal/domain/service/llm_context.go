// Package service 提供跨层共享的领域服务辅助
package service

import (
	"context"
	"strings"
)

// 工作流名称，用于指标与追踪标签
const (
	WorkflowContinue = "continue"
	WorkflowExpand   = "expand"
)

const unknownLabel = "unknown"

type llmLabelsKey struct{}

// llmLabels 一次模型调用的标签，由调用链写入、回调读取
type llmLabels struct {
	workflow string
	provider string
}

// WithWorkflowProvider 记录本次调用所属的工作流与提供商，空白值按 unknown 处理
func WithWorkflowProvider(ctx context.Context, workflow, provider string) context.Context {
	return context.WithValue(ctx, llmLabelsKey{}, llmLabels{
		workflow: label(workflow),
		provider: label(provider),
	})
}

func WorkflowFromContext(ctx context.Context) string {
	return labelsFrom(ctx).workflow
}

func ProviderFromContext(ctx context.Context) string {
	return labelsFrom(ctx).provider
}

func labelsFrom(ctx context.Context) llmLabels {
	if ctx != nil {
		if l, ok := ctx.Value(llmLabelsKey{}).(llmLabels); ok {
			return l
		}
	}
	return llmLabels{workflow: unknownLabel, provider: unknownLabel}
}

func label(v string) string {
	if v = strings.TrimSpace(v); v == "" {
		return unknownLabel
	}
	return v
}
