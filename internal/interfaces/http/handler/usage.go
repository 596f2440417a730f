package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"quill-ai-editor/internal/application/continuation"
	"quill-ai-editor/internal/domain/entity"
	"quill-ai-editor/internal/interfaces/http/dto"
	"quill-ai-editor/pkg/errors"
	"quill-ai-editor/pkg/logger"
)

const (
	defaultUsageWindow = 24 * time.Hour
	maxUsageWindow     = 30 * 24 * time.Hour
)

// UsageSummarizer 用量汇总
type UsageSummarizer interface {
	SummaryWindow(ctx context.Context, window time.Duration) ([]entity.StyleUsage, time.Time, error)
}

// UsageHandler 生成用量处理器
type UsageHandler struct {
	usage UsageSummarizer
}

func NewUsageHandler(usage *continuation.UsageRecorder) *UsageHandler {
	return &UsageHandler{usage: usage}
}

// Summary 按风格汇总生成用量
// @Summary 生成用量汇总
// @Description 汇总窗口内各风格的请求数、失败数与 token 用量
// @Tags Usage
// @Produce json
// @Param window query string false "统计窗口，Go duration 格式" default(24h)
// @Success 200 {object} dto.Response[dto.UsageSummaryResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/usage [get]
func (h *UsageHandler) Summary(c *gin.Context) {
	ctx := c.Request.Context()

	window := defaultUsageWindow
	if raw := c.Query("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 || d > maxUsageWindow {
			dto.AppError(c, errors.ErrInvalidParam.WithDetail("window must be a duration between 1s and 720h"))
			return
		}
		window = d
	}

	rows, since, err := h.usage.SummaryWindow(ctx, window)
	if err != nil {
		if !errors.Is(err, errors.CodeServiceUnavailable) {
			logger.Error(ctx, "failed to summarize usage", err, "window", window.String())
		}
		dto.AppError(c, err)
		return
	}

	resp := dto.UsageSummaryResponse{
		Window: window.String(),
		Since:  since.Format(time.RFC3339),
		Styles: make([]dto.StyleUsageResponse, 0, len(rows)),
	}
	for _, row := range rows {
		resp.Styles = append(resp.Styles, dto.StyleUsageResponse{
			Style:            row.Style.String(),
			Requests:         row.Requests,
			Failures:         row.Failures,
			TokensPrompt:     row.TokensPrompt,
			TokensCompletion: row.TokensCompletion,
		})
	}
	dto.Success(c, resp)
}
