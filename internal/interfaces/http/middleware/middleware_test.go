package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill-ai-editor/internal/config"
	"quill-ai-editor/internal/infrastructure/persistence/redis"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.POST("/api/generate", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"content": "ok"})
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	return r
}

func do(r http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit_RejectsAfterLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.RateLimitConfig{Enabled: true, Requests: 2, Window: time.Minute}
	r := newEngine(NewRateLimitMiddleware(cfg, redis.NewFromClient(rdb)))

	for i := 0; i < 2; i++ {
		w := do(r, http.MethodPost, "/api/generate", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get(RateLimitLimitHeader))
		assert.Equal(t, strconv.Itoa(1-i), w.Header().Get(RateLimitRemainingHeader))
	}

	w := do(r, http.MethodPost, "/api/generate", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"rate limited"}`, w.Body.String())
	assert.Equal(t, "0", w.Header().Get(RateLimitRemainingHeader))
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int, time.Duration) (bool, int, error) {
	return false, 0, errors.New("redis down")
}

func TestRateLimit_FailsOpen(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, Requests: 1, Window: time.Second}
	r := newEngine(RateLimit(cfg, failingLimiter{}))

	w := do(r, http.MethodPost, "/api/generate", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_DisabledWithoutRedis(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, Requests: 1, Window: time.Second}
	r := newEngine(NewRateLimitMiddleware(cfg, nil))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/generate", nil).Code)
	}
}

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID())

	w := do(r, http.MethodPost, "/api/generate", map[string]string{RequestIDHeader: "req-42"})
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))

	w = do(r, http.MethodPost, "/api/generate", nil)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	w = do(r, http.MethodPost, "/api/generate", map[string]string{RequestIDHeader: "bad id"})
	assert.NotEqual(t, "bad id", w.Header().Get(RequestIDHeader))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestRecovery(t *testing.T) {
	r := newEngine(Recovery())

	w := do(r, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}

func TestCORS_AllowAllOrigins(t *testing.T) {
	r := newEngine(CORS(config.CORSConfig{AllowedOrigins: []string{"*"}}))

	w := do(r, http.MethodPost, "/api/generate", map[string]string{"Origin": "http://editor.local"})
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
