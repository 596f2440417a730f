package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RateLimiter 滑动窗口限流。每个 key 是一个有序集合，member 为单次请求，score 为毫秒时间戳
type RateLimiter struct {
	client *Client
	now    func() time.Time
}

func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// Allow 判断本次请求是否放行，放行时返回扣除本次后的剩余配额
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	ctx, span := tracer.Start(ctx, "ratelimit.Allow", trace.WithAttributes(
		attribute.String("ratelimit.key", key),
		attribute.Int("ratelimit.limit", limit),
		attribute.Int64("ratelimit.window_ms", window.Milliseconds()),
	))
	defer span.End()

	now := l.now()
	used, err := l.used(ctx, key, now, window)
	if err != nil {
		span.RecordError(err)
		return false, 0, err
	}
	if used >= limit {
		span.SetAttributes(attribute.Bool("ratelimit.allowed", false))
		return false, 0, nil
	}

	ms := now.UnixMilli()
	_, err = l.client.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		// 同一毫秒可能有多个请求，member 需要唯一
		p.ZAdd(ctx, key, redis.Z{Score: float64(ms), Member: strconv.FormatInt(ms, 10) + "-" + uuid.NewString()})
		p.Expire(ctx, key, 2*window)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return false, 0, err
	}

	remaining := limit - used - 1
	span.SetAttributes(attribute.Bool("ratelimit.allowed", true), attribute.Int("ratelimit.remaining", remaining))
	return true, remaining, nil
}

// used 清理窗口外的记录并返回窗口内的请求数
func (l *RateLimiter) used(ctx context.Context, key string, now time.Time, window time.Duration) (int, error) {
	cutoff := strconv.FormatInt(now.Add(-window).UnixMilli(), 10)

	var card *redis.IntCmd
	_, err := l.client.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRemRangeByScore(ctx, key, "-inf", cutoff)
		card = p.ZCard(ctx, key)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(card.Val()), nil
}

// BuildRateLimitKey 按路由与客户端标识构建限流键
func BuildRateLimitKey(route, clientID string) string {
	return fmt.Sprintf("ratelimit:%s:%s", route, clientID)
}
