package continuation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill-ai-editor/internal/domain/entity"
	"quill-ai-editor/internal/infrastructure/persistence/redis"
	apperrors "quill-ai-editor/pkg/errors"
)

type countingRepo struct {
	memoryUsageRepo
	calls int32
}

func (r *countingRepo) SummarizeByStyle(ctx context.Context, since time.Time) ([]entity.StyleUsage, error) {
	atomic.AddInt32(&r.calls, 1)
	return r.memoryUsageRepo.SummarizeByStyle(ctx, since)
}

type brokenCache struct{}

func (brokenCache) GetOrLoadSafe(context.Context, string, time.Duration, func() (any, error)) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestUsageRecorder_SummaryWindow_TruncatesSince(t *testing.T) {
	repo := &countingRepo{}
	r := NewUsageRecorder(repo)
	r.now = fixedClock(time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC))

	rows, since, err := r.SummaryWindow(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Len(t, rows, len(entity.Styles()))
	assert.Equal(t, time.Date(2026, 3, 1, 11, 30, 0, 0, time.UTC), since)
}

func TestUsageRecorder_SummaryWindow_UsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo := &countingRepo{memoryUsageRepo: memoryUsageRepo{rows: []entity.StyleUsage{
		{Style: entity.StyleCasual, Requests: 2},
	}}}
	r := NewUsageRecorder(repo).WithCache(redis.NewCache(redis.NewFromClient(rdb)), time.Minute)
	r.now = fixedClock(time.Date(2026, 3, 1, 12, 0, 10, 0, time.UTC))

	first, _, err := r.SummaryWindow(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	second, _, err := r.SummaryWindow(context.Background(), 24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&repo.calls))
	for _, row := range second {
		if row.Style == entity.StyleCasual {
			assert.Equal(t, int64(2), row.Requests)
		}
	}
}

func TestUsageRecorder_SummaryWindow_CacheDownFallsBack(t *testing.T) {
	repo := &countingRepo{}
	r := NewUsageRecorder(repo).WithCache(brokenCache{}, time.Minute)

	rows, _, err := r.SummaryWindow(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Len(t, rows, len(entity.Styles()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&repo.calls))
}

func TestUsageRecorder_SummaryWindow_Errors(t *testing.T) {
	_, _, err := NewUsageRecorder(nil).SummaryWindow(context.Background(), time.Hour)
	assert.True(t, apperrors.Is(err, apperrors.CodeServiceUnavailable))

	_, _, err = NewUsageRecorder(&countingRepo{}).SummaryWindow(context.Background(), 0)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidParam))

	failing := &countingRepo{memoryUsageRepo: memoryUsageRepo{err: errors.New("db down")}}
	_, _, err = NewUsageRecorder(failing).WithCache(brokenCache{}, time.Minute).SummaryWindow(context.Background(), time.Hour)
	assert.True(t, apperrors.Is(err, apperrors.CodeDatabaseError))
}

func TestUsageSummaryKey(t *testing.T) {
	since := time.Unix(1700000000, 0)
	assert.Equal(t, "usage:summary:1h0m0s:1700000000", UsageSummaryKey(time.Hour, since))
}
