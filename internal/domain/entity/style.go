// Package entity 定义领域实体
package entity

import (
	"fmt"
	"strings"
)

// Style 写作风格，封闭枚举
type Style string

const (
	StyleAuto         Style = "auto"
	StyleProfessional Style = "professional"
	StyleCreative     Style = "creative"
	StyleCasual       Style = "casual"
)

// DefaultStyle 未选择时使用的风格
const DefaultStyle = StyleAuto

// Styles 返回全部风格（展示顺序）
func Styles() []Style {
	return []Style{StyleAuto, StyleProfessional, StyleCreative, StyleCasual}
}

// ParseStyle 解析风格字符串，不支持的值返回错误而不是回退到默认值
func ParseStyle(s string) (Style, error) {
	style := Style(strings.ToLower(strings.TrimSpace(s)))
	if !style.Valid() {
		return "", fmt.Errorf("unsupported style: %q", s)
	}
	return style, nil
}

// Valid 是否为受支持的风格
func (s Style) Valid() bool {
	switch s {
	case StyleAuto, StyleProfessional, StyleCreative, StyleCasual:
		return true
	default:
		return false
	}
}

// Label 展示名称
func (s Style) Label() string {
	switch s {
	case StyleAuto:
		return "Auto"
	case StyleProfessional:
		return "Professional"
	case StyleCreative:
		return "Creative"
	case StyleCasual:
		return "Casual"
	default:
		return string(s)
	}
}

func (s Style) String() string {
	return string(s)
}
