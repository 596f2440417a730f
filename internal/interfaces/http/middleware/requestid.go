package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"quill-ai-editor/pkg/logger"
)

// RequestIDHeader 请求 ID 头，编辑器端上报问题时附带
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 64

// RequestID 沿用上游传入的请求 ID，否则生成 UUID；同时把 ID 与客户端 IP 挂到日志上下文
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		c.Set(string(logger.RequestIDKey), id)
		c.Header(RequestIDHeader, id)

		ctx := logger.WithContext(c.Request.Context(), logger.RequestIDKey, id)
		c.Request = c.Request.WithContext(logger.WithContext(ctx, logger.ClientIPKey, c.ClientIP()))
		c.Next()
	}
}

// validRequestID 只接受可打印 ASCII，避免把控制字符写进日志和响应头
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
