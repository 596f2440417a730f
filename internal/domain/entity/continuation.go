package entity

// Selection 编辑器在触发生成瞬间的选区快照
// From/To 为全文中的字符（rune）偏移，Empty 表示光标而非选区
type Selection struct {
	From  int  `json:"from"`
	To    int  `json:"to"`
	Empty bool `json:"empty"`
}

// Cursor 构造光标位置的空选区
func Cursor(pos int) Selection {
	return Selection{From: pos, To: pos, Empty: true}
}

// Span 构造非空选区
func Span(from, to int) Selection {
	return Selection{From: from, To: to, Empty: false}
}

// Mode 生成模式
type Mode string

const (
	// ModeContinue 从光标处续写
	ModeContinue Mode = "continue"
	// ModeExpand 扩写选中文本
	ModeExpand Mode = "expand"
)

// ModeOf 根据是否为选区模式返回生成模式
func ModeOf(isSelection bool) Mode {
	if isSelection {
		return ModeExpand
	}
	return ModeContinue
}

// RequestContext 单次生成尝试的上下文，创建后不可变
type RequestContext struct {
	Text        string
	IsSelection bool
	InsertAt    int
}

// Mode 返回该上下文对应的生成模式
func (r RequestContext) Mode() Mode {
	return ModeOf(r.IsSelection)
}

// GenerationInput 发送给生成服务的内容
type GenerationInput struct {
	ContextText string
	Style       Style
	IsSelection bool
}
