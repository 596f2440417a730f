// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"quill-ai-editor/internal/application/continuation"
	"quill-ai-editor/internal/domain/entity"
	"quill-ai-editor/internal/interfaces/http/dto"
	wfmodel "quill-ai-editor/internal/workflow/model"
	"quill-ai-editor/pkg/errors"
	"quill-ai-editor/pkg/logger"
)

// ContinuationWriter 续写用例
type ContinuationWriter interface {
	Write(ctx context.Context, in *continuation.Input) (*wfmodel.ContinuationOutput, error)
}

// GenerateHandler 续写处理器，请求与响应格式与编辑器前端约定一致
type GenerateHandler struct {
	writer ContinuationWriter
}

// NewGenerateHandler 创建续写处理器
func NewGenerateHandler(writer *continuation.Writer) *GenerateHandler {
	if writer == nil {
		return &GenerateHandler{}
	}
	return &GenerateHandler{writer: writer}
}

// Generate 生成续写或扩写文本
// @Summary 续写/扩写
// @Description 根据上下文与风格生成接续文本，isSelection 为 true 时扩写选中文本
// @Tags Generate
// @Accept json
// @Produce json
// @Param body body dto.GenerateRequest true "续写请求"
// @Success 200 {object} dto.GenerateResponse
// @Failure 400 {object} dto.GenerateErrorResponse
// @Failure 429 {object} dto.GenerateErrorResponse
// @Failure 500 {object} dto.GenerateErrorResponse
// @Router /api/generate [post]
func (h *GenerateHandler) Generate(c *gin.Context) {
	ctx := c.Request.Context()

	if h.writer == nil {
		dto.GenerateError(c, http.StatusServiceUnavailable, errors.ErrServiceUnavailable.Message)
		return
	}

	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.GenerateError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	style := entity.DefaultStyle
	if strings.TrimSpace(req.Style) != "" {
		parsed, err := entity.ParseStyle(req.Style)
		if err != nil {
			dto.GenerateError(c, http.StatusBadRequest, errors.ErrUnsupportedStyle.Message)
			return
		}
		style = parsed
	}

	out, err := h.writer.Write(ctx, &continuation.Input{
		ContextText: req.ContextText,
		Style:       style,
		IsSelection: req.IsSelection,
		RequestID:   c.GetString("request_id"),
	})
	if err != nil {
		appErr := errors.AsAppError(err)
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Error(ctx, "generate request failed", err, "style", style.String())
			dto.GenerateError(c, appErr.HTTPStatus, appErr.Message)
			return
		}
		dto.GenerateError(c, appErr.HTTPStatus, clientMessage(appErr))
		return
	}

	c.JSON(http.StatusOK, dto.GenerateResponse{Content: out.Content})
}

// clientMessage 4xx 错误附带详情，便于前端展示
func clientMessage(e *errors.AppError) string {
	if e.Detail == "" {
		return e.Message
	}
	return e.Message + ": " + e.Detail
}
