package continuation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"quill-ai-editor/internal/domain/entity"
	"quill-ai-editor/internal/domain/repository"
	"quill-ai-editor/pkg/errors"
	"quill-ai-editor/pkg/logger"
	"quill-ai-editor/pkg/metrics"
)

// SummaryCache 汇总结果的读穿缓存
type SummaryCache interface {
	GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (any, error)) ([]byte, error)
}

// UsageRecorder 写入与汇总生成用量流水。
// 未配置数据库时 repo 为 nil，Record 静默跳过，Summary 返回 ServiceUnavailable。
type UsageRecorder struct {
	repo     repository.GenerationUsageRepository
	cache    SummaryCache
	cacheTTL time.Duration
	now      func() time.Time
}

func NewUsageRecorder(repo repository.GenerationUsageRepository) *UsageRecorder {
	return &UsageRecorder{repo: repo, now: time.Now}
}

// WithCache 为窗口汇总启用缓存，ttl<=0 时不缓存
func (r *UsageRecorder) WithCache(cache SummaryCache, ttl time.Duration) *UsageRecorder {
	if cache != nil && ttl > 0 {
		r.cache = cache
		r.cacheTTL = ttl
	}
	return r
}

// Enabled 是否已接入用量存储
func (r *UsageRecorder) Enabled() bool {
	return r != nil && r.repo != nil
}

// Record 写入一条流水，best-effort，不影响主流程
func (r *UsageRecorder) Record(ctx context.Context, evt *entity.GenerationUsageEvent) error {
	if !r.Enabled() || evt == nil {
		return nil
	}
	if evt.TokensPrompt < 0 || evt.TokensCompletion < 0 {
		metrics.UsageRecordTotal.WithLabelValues("invalid").Inc()
		return fmt.Errorf("invalid token usage")
	}

	if strings.TrimSpace(evt.ID) == "" {
		evt.ID = uuid.NewString()
	}
	evt.Provider = strings.TrimSpace(evt.Provider)
	evt.Model = strings.TrimSpace(evt.Model)

	if err := r.repo.Create(ctx, evt); err != nil {
		metrics.UsageRecordTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.UsageRecordTotal.WithLabelValues("success").Inc()
	return nil
}

// Summary 按风格汇总 since 之后的用量，结果覆盖全部风格
func (r *UsageRecorder) Summary(ctx context.Context, since time.Time) ([]entity.StyleUsage, error) {
	if !r.Enabled() {
		return nil, errors.ErrServiceUnavailable.WithDetail("usage ledger is disabled")
	}

	rows, err := r.repo.SummarizeByStyle(ctx, since)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to summarize usage")
	}

	byStyle := make(map[entity.Style]entity.StyleUsage, len(rows))
	for _, row := range rows {
		byStyle[row.Style] = row
	}

	out := make([]entity.StyleUsage, 0, len(entity.Styles()))
	for _, s := range entity.Styles() {
		row, ok := byStyle[s]
		if !ok {
			row = entity.StyleUsage{Style: s}
		}
		out = append(out, row)
	}
	return out, nil
}

// SummaryWindow 汇总最近 window 内的用量。起点按分钟取整，同一分钟内的请求共享缓存。
func (r *UsageRecorder) SummaryWindow(ctx context.Context, window time.Duration) ([]entity.StyleUsage, time.Time, error) {
	if !r.Enabled() {
		return nil, time.Time{}, errors.ErrServiceUnavailable.WithDetail("usage ledger is disabled")
	}
	if window <= 0 {
		return nil, time.Time{}, errors.ErrInvalidParam.WithDetail("window must be positive")
	}

	since := r.now().UTC().Add(-window).Truncate(time.Minute)
	if r.cache == nil {
		rows, err := r.Summary(ctx, since)
		return rows, since, err
	}

	raw, err := r.cache.GetOrLoadSafe(ctx, UsageSummaryKey(window, since), r.cacheTTL, func() (any, error) {
		return r.Summary(ctx, since)
	})
	if err != nil {
		if errors.IsAppError(err) {
			return nil, since, err
		}
		logger.Warn(ctx, "usage summary cache unavailable, querying ledger directly", "error", err.Error())
		rows, err := r.Summary(ctx, since)
		return rows, since, err
	}

	var rows []entity.StyleUsage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, since, errors.Wrap(err, errors.CodeCacheError, "failed to decode usage summary")
	}
	return rows, since, nil
}

// UsageSummaryKey 用量汇总缓存键
func UsageSummaryKey(window time.Duration, since time.Time) string {
	return fmt.Sprintf("usage:summary:%s:%d", window, since.Unix())
}
