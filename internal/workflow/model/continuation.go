// Package model 定义工作流的输入输出结构
package model

import (
	"time"

	"quill-ai-editor/internal/domain/entity"
)

// ContinuationInput 续写调用参数，指针字段为 nil 时使用模型默认值
type ContinuationInput struct {
	ContextText string
	Style       entity.Style
	IsSelection bool

	Provider string
	Model    string

	Temperature *float32
	MaxTokens   *int
}

type ContinuationOutput struct {
	Content string
	Meta    LLMUsageMeta
}

// LLMUsageMeta 单次调用的模型与 token 信息
type LLMUsageMeta struct {
	Provider         string
	Model            string
	PromptTokens     int
	CompletionTokens int
	Temperature      float64
	GeneratedAt      time.Time
}
