package editor

import (
	"fmt"
	"sync"

	"quill-ai-editor/internal/domain/entity"
)

// Document 基于 rune 切片的内存文档，实现 Host
// 供 CLI 与测试驱动状态机使用
type Document struct {
	mu   sync.RWMutex
	text []rune
	sel  entity.Selection
}

// NewDocument 创建文档，光标位于末尾
func NewDocument(text string) *Document {
	runes := []rune(text)
	return &Document{
		text: runes,
		sel:  entity.Cursor(len(runes)),
	}
}

// FullText 实现 TextSource
func (d *Document) FullText() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return string(d.text)
}

// Len 文档字符数
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.text)
}

// TextInRange 实现 TextSource，越界部分被截断
func (d *Document) TextInRange(from, to int) string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	from = clamp(from, 0, len(d.text))
	to = clamp(to, from, len(d.text))
	return string(d.text[from:to])
}

// Selection 实现 Host
func (d *Document) Selection() entity.Selection {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sel
}

// Select 设置选区，from > to 时自动交换；from == to 时为光标
func (d *Document) Select(from, to int) error {
	if from > to {
		from, to = to, from
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if from < 0 || to > len(d.text) {
		return fmt.Errorf("selection [%d,%d) outside document of length %d", from, to, len(d.text))
	}
	d.sel = entity.Selection{From: from, To: to, Empty: from == to}
	return nil
}

// SetCursor 将选区折叠到指定位置
func (d *Document) SetCursor(pos int) error {
	return d.Select(pos, pos)
}

// InsertTextAt 实现 Host，插入点之后的选区端点随之后移
func (d *Document) InsertTextAt(pos int, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if pos < 0 || pos > len(d.text) {
		return fmt.Errorf("insert position %d outside document of length %d", pos, len(d.text))
	}

	ins := []rune(text)
	if len(ins) == 0 {
		return nil
	}

	next := make([]rune, 0, len(d.text)+len(ins))
	next = append(next, d.text[:pos]...)
	next = append(next, ins...)
	next = append(next, d.text[pos:]...)
	d.text = next

	if d.sel.From >= pos {
		d.sel.From += len(ins)
	}
	if d.sel.To >= pos {
		d.sel.To += len(ins)
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
