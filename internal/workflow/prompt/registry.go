// Package prompt 管理续写提示词模板
package prompt

import (
	"embed"
	"fmt"
	"path"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

type PromptID string

const (
	PromptContinuationV1 PromptID = "continuation_v1"
)

// 每个模板由 <id>.system.txt 与 <id>.user.txt 两个文件组成
var knownPrompts = map[PromptID]bool{
	PromptContinuationV1: true,
}

// Registry 懒加载并缓存编译后的 ChatTemplate，可并发使用
type Registry struct {
	templates sync.Map // PromptID -> einoprompt.ChatTemplate
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}
	if tpl, ok := r.templates.Load(id); ok {
		return tpl.(einoprompt.ChatTemplate), nil
	}
	if !knownPrompts[id] {
		return nil, fmt.Errorf("unknown prompt id: %s", id)
	}

	system, err := readTemplate(id, "system")
	if err != nil {
		return nil, err
	}
	user, err := readTemplate(id, "user")
	if err != nil {
		return nil, err
	}

	tpl := einoprompt.FromMessages(schema.FString,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	)
	actual, _ := r.templates.LoadOrStore(id, tpl)
	return actual.(einoprompt.ChatTemplate), nil
}

func readTemplate(id PromptID, role string) (string, error) {
	name := path.Join("templates", fmt.Sprintf("%s.%s.txt", id, role))
	b, err := templatesFS.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read prompt %s: %w", name, err)
	}
	return strings.TrimSpace(string(b)), nil
}
