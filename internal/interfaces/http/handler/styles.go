package handler

import (
	"github.com/gin-gonic/gin"

	"quill-ai-editor/internal/domain/entity"
	"quill-ai-editor/internal/interfaces/http/dto"
)

// StyleHandler 写作风格处理器
type StyleHandler struct{}

func NewStyleHandler() *StyleHandler {
	return &StyleHandler{}
}

// ListStyles 获取可选写作风格
// @Summary 写作风格列表
// @Tags Generate
// @Produce json
// @Success 200 {object} dto.Response[dto.StyleListResponse]
// @Router /v1/styles [get]
func (h *StyleHandler) ListStyles(c *gin.Context) {
	styles := entity.Styles()
	resp := dto.StyleListResponse{Styles: make([]dto.StyleResponse, 0, len(styles))}
	for _, s := range styles {
		resp.Styles = append(resp.Styles, dto.StyleResponse{
			Value:   s.String(),
			Label:   s.Label(),
			Default: s == entity.DefaultStyle,
		})
	}
	dto.Success(c, resp)
}
