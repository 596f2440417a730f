package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"quill-ai-editor/internal/domain/entity"
)

// GenerationUsageRepository 生成用量流水仓储
type GenerationUsageRepository struct {
	client *Client
}

func NewGenerationUsageRepository(client *Client) *GenerationUsageRepository {
	return &GenerationUsageRepository{client: client}
}

func (r *GenerationUsageRepository) Create(ctx context.Context, event *entity.GenerationUsageEvent) error {
	ctx, span := tracer.Start(ctx, "postgres.GenerationUsageRepository.Create")
	defer span.End()

	if err := r.client.db.WithContext(ctx).Create(event).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create generation usage event: %w", err)
	}
	return nil
}

func (r *GenerationUsageRepository) SummarizeByStyle(ctx context.Context, since time.Time) ([]entity.StyleUsage, error) {
	ctx, span := tracer.Start(ctx, "postgres.GenerationUsageRepository.SummarizeByStyle")
	defer span.End()

	var rows []entity.StyleUsage
	if err := summarizeQuery(r.client.db.WithContext(ctx), since).Find(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to summarize generation usage: %w", err)
	}
	return rows, nil
}

func summarizeQuery(db *gorm.DB, since time.Time) *gorm.DB {
	return db.Model(&entity.GenerationUsageEvent{}).
		Select(
			"style, COUNT(*) AS requests, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS failures, "+
				"COALESCE(SUM(tokens_prompt), 0) AS tokens_prompt, "+
				"COALESCE(SUM(tokens_completion), 0) AS tokens_completion",
			string(entity.GenerationFailed),
		).
		Where("created_at >= ?", since).
		Group("style").
		Order("style")
}
