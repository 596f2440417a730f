package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"quill-ai-editor/internal/interfaces/http/dto"
	"quill-ai-editor/pkg/errors"
	"quill-ai-editor/pkg/logger"
)

// Recovery 捕获 panic，记录堆栈后返回编辑器可直接展示的 {error}
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			logger.Error(c.Request.Context(), "panic recovered", err,
				"route", c.FullPath(),
				"method", c.Request.Method,
				"stack", string(debug.Stack()),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.GenerateErrorResponse{
				Error: errors.ErrInternalError.Message,
			})
		}()
		c.Next()
	}
}
