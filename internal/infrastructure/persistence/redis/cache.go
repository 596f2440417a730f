package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

var cacheTracer = otel.Tracer("redis.cache")

// Cache JSON 读穿缓存，目前只承载用量汇总
type Cache struct {
	client *Client
	flight singleflight.Group
}

func NewCache(client *Client) *Cache {
	return &Cache{client: client}
}

// Get 读取原始字节，未命中时返回 redis.Nil
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := cacheTracer.Start(ctx, "cache.Get", trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	raw, err := c.client.rdb.Get(ctx, key).Bytes()
	span.SetAttributes(attribute.Bool("cache.hit", err == nil))
	if err != nil && !IsNil(err) {
		span.RecordError(err)
	}
	return raw, err
}

// GetOrLoadSafe 命中直接返回；未命中时同一个 key 只有一个 loader 在跑，
// 结果序列化为 JSON 后回填，回填失败只记录在 span 上
func (c *Cache) GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (any, error)) ([]byte, error) {
	raw, err := c.Get(ctx, key)
	switch {
	case err == nil:
		return raw, nil
	case !IsNil(err):
		return nil, err
	}

	ctx, span := cacheTracer.Start(ctx, "cache.Load", trace.WithAttributes(
		attribute.String("cache.key", key),
		attribute.Int64("cache.ttl_ms", ttl.Milliseconds()),
	))
	defer span.End()

	v, err, shared := c.flight.Do(key, func() (any, error) {
		return c.fill(ctx, key, ttl, loader)
	})
	span.SetAttributes(attribute.Bool("cache.shared", shared))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Cache) fill(ctx context.Context, key string, ttl time.Duration, loader func() (any, error)) ([]byte, error) {
	// 排队期间可能已被前一个请求写入
	if raw, err := c.client.rdb.Get(ctx, key).Bytes(); err == nil {
		return raw, nil
	}

	v, err := loader()
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode cache value %q: %w", key, err)
	}
	if err := c.client.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		trace.SpanFromContext(ctx).RecordError(err)
	}
	return raw, nil
}
