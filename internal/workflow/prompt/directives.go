package prompt

import (
	"fmt"

	"quill-ai-editor/internal/domain/entity"
)

const (
	directiveAuto         = "Continue writing naturally, maintaining the existing tone and style."
	directiveProfessional = "Continue writing in a formal, professional, business-appropriate tone with clear structure and precise language."
	directiveCreative     = "Continue writing in a creative, imaginative, and expressive way with vivid descriptions and engaging narrative."
	directiveCasual       = "Continue writing in a casual, friendly, conversational tone as if talking to a friend."

	modeExpand   = "The user has selected specific text. Expand on this selection, elaborate the ideas, or provide additional detail related to what they've highlighted."
	modeContinue = "Continue writing seamlessly from where the user left off, maintaining narrative flow and coherence."

	instructionExpand   = "Expand on this selected text:"
	instructionContinue = "Continue writing after:"
)

// StyleDirective 返回风格对应的指令，未知风格返回错误
func StyleDirective(s entity.Style) (string, error) {
	switch s {
	case entity.StyleAuto:
		return directiveAuto, nil
	case entity.StyleProfessional:
		return directiveProfessional, nil
	case entity.StyleCreative:
		return directiveCreative, nil
	case entity.StyleCasual:
		return directiveCasual, nil
	default:
		return "", fmt.Errorf("no directive for style %q", s)
	}
}

// ModeDirective 返回生成模式对应的指令
func ModeDirective(isSelection bool) string {
	if isSelection {
		return modeExpand
	}
	return modeContinue
}

// InstructionLabel 返回用户消息中上下文前的说明
func InstructionLabel(isSelection bool) string {
	if isSelection {
		return instructionExpand
	}
	return instructionContinue
}

// ContinuationVars 构造 continuation_v1 模板变量
func ContinuationVars(contextText string, style entity.Style, isSelection bool) (map[string]any, error) {
	styleDirective, err := StyleDirective(style)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"style_directive": styleDirective,
		"mode_directive":  ModeDirective(isSelection),
		"instruction":     InstructionLabel(isSelection),
		"context_text":    contextText,
	}, nil
}
