// Package editor 实现编辑器侧的续写交互：上下文提取、状态机与内存文档
package editor

import (
	"context"

	"quill-ai-editor/internal/domain/entity"
)

// TextSource 上下文提取所需的只读文本能力
type TextSource interface {
	// FullText 返回整篇文档的纯文本
	FullText() string
	// TextInRange 返回 [from, to) 区间的文本，位置为字符偏移
	TextInRange(from, to int) string
}

// Host 编辑器宿主（富文本编辑器）暴露给状态机的最小能力
// 宿主拥有文档与选区，状态机只持有非拥有引用
type Host interface {
	TextSource
	// Selection 返回当前选区
	Selection() entity.Selection
	// InsertTextAt 在指定位置插入文本
	InsertTextAt(pos int, text string) error
}

// Generator 续写生成能力，由 genclient.Client 提供 HTTP 实现
type Generator interface {
	Generate(ctx context.Context, in entity.GenerationInput) (string, error)
}

// GeneratorFunc 函数适配器
type GeneratorFunc func(ctx context.Context, in entity.GenerationInput) (string, error)

// Generate 实现 Generator
func (f GeneratorFunc) Generate(ctx context.Context, in entity.GenerationInput) (string, error) {
	return f(ctx, in)
}
