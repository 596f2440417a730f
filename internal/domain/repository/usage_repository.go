// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"time"

	"quill-ai-editor/internal/domain/entity"
)

// GenerationUsageRepository 生成用量流水
type GenerationUsageRepository interface {
	Create(ctx context.Context, event *entity.GenerationUsageEvent) error
	SummarizeByStyle(ctx context.Context, since time.Time) ([]entity.StyleUsage, error)
}
