package editor

import (
	"fmt"
	"unicode/utf8"

	"quill-ai-editor/internal/domain/entity"
	"quill-ai-editor/pkg/errors"
)

// ContextWindow 续写模式下发送给模型的最大字符数
const ContextWindow = 2000

// Extract 根据选区快照生成请求上下文
//
// 非空选区为扩写模式，发送选中文本，插入点为选区末尾；
// 空选区为续写模式，全文不超过 ContextWindow 时发送全文，
// 否则只发送光标前 ContextWindow 个字符。
func Extract(sel entity.Selection, src TextSource) (entity.RequestContext, error) {
	if src == nil {
		return entity.RequestContext{}, errors.ErrEditorNotReady
	}

	full := src.FullText()
	length := utf8.RuneCountInString(full)
	if err := validateSelection(sel, length); err != nil {
		return entity.RequestContext{}, err
	}

	if !sel.Empty {
		return entity.RequestContext{
			Text:        src.TextInRange(sel.From, sel.To),
			IsSelection: true,
			InsertAt:    sel.To,
		}, nil
	}

	text := full
	if length > ContextWindow {
		start := max(0, sel.From-ContextWindow)
		text = src.TextInRange(start, sel.From)
	}

	return entity.RequestContext{
		Text:        text,
		IsSelection: false,
		InsertAt:    sel.To,
	}, nil
}

func validateSelection(sel entity.Selection, length int) error {
	if sel.From < 0 || sel.To < sel.From || sel.To > length {
		return errors.ErrInvalidSelection.WithDetail(
			fmt.Sprintf("selection [%d,%d) outside document of length %d", sel.From, sel.To, length))
	}
	return nil
}
