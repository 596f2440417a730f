package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"quill-ai-editor/pkg/metrics"
)

// Metrics 记录请求量、耗时与收发字节数。路径取路由模板，未匹配的请求归入 unmatched
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		start := time.Now()

		c.Next()

		metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		observeSize(metrics.HTTPRequestSize.WithLabelValues(method, route), c.Request.ContentLength)
		observeSize(metrics.HTTPResponseSize.WithLabelValues(method, route), int64(c.Writer.Size()))
	}
}

func observeSize(o interface{ Observe(float64) }, n int64) {
	if n > 0 {
		o.Observe(float64(n))
	}
}
