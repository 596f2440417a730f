// Package chain 编排提示词与 ChatModel 的调用链
package chain

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	llmctx "quill-ai-editor/internal/domain/service"
	wfmodel "quill-ai-editor/internal/workflow/model"
	workflowprompt "quill-ai-editor/internal/workflow/prompt"
)

// ChatModelFactory 按提供商名称获取 ChatModel，名称为空时返回默认提供商
type ChatModelFactory interface {
	Get(ctx context.Context, provider string) (model.BaseChatModel, error)
}

type continuationRunnable = compose.Runnable[[]*schema.Message, *schema.Message]

// ContinuationChain 按提供商缓存编译后的调用链
type ContinuationChain struct {
	factory ChatModelFactory

	mu        sync.Mutex
	runnables map[string]continuationRunnable
}

func NewContinuationChain(factory ChatModelFactory) *ContinuationChain {
	return &ContinuationChain{
		factory:   factory,
		runnables: make(map[string]continuationRunnable),
	}
}

// Invoke 执行一次续写/扩写调用。
// ChatModel 通过 compose 链执行，使全局 callbacks（指标、追踪、用量）生效。
func (c *ContinuationChain) Invoke(ctx context.Context, in *wfmodel.ContinuationInput) (*schema.Message, error) {
	if c == nil || c.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	if strings.TrimSpace(in.ContextText) == "" {
		return nil, fmt.Errorf("context text is required")
	}

	provider := strings.TrimSpace(in.Provider)
	workflow := llmctx.WorkflowContinue
	if in.IsSelection {
		workflow = llmctx.WorkflowExpand
	}
	ctx = llmctx.WithWorkflowProvider(ctx, workflow, provider)

	runnable, err := c.runnable(ctx, provider)
	if err != nil {
		return nil, err
	}

	msgs, err := formatContinuationMessages(ctx, in)
	if err != nil {
		return nil, err
	}

	outMsg, err := runnable.Invoke(ctx, msgs, compose.WithChatModelOption(buildContinuationModelOptions(in)...))
	if err != nil {
		return nil, err
	}
	if outMsg == nil {
		return nil, fmt.Errorf("empty llm response")
	}
	return outMsg, nil
}

func (c *ContinuationChain) runnable(ctx context.Context, provider string) (continuationRunnable, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.runnables[provider]; ok {
		return r, nil
	}

	chatModel, err := c.factory.Get(ctx, provider)
	if err != nil {
		return nil, err
	}

	r, err := compose.NewChain[[]*schema.Message, *schema.Message]().
		AppendChatModel(chatModel, compose.WithNodeName("continuation")).
		Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile continuation chain: %w", err)
	}
	c.runnables[provider] = r
	return r, nil
}

var continuationPromptRegistry = workflowprompt.NewRegistry()

func formatContinuationMessages(ctx context.Context, in *wfmodel.ContinuationInput) ([]*schema.Message, error) {
	tpl, err := continuationPromptRegistry.ChatTemplate(workflowprompt.PromptContinuationV1)
	if err != nil {
		return nil, err
	}
	vars, err := workflowprompt.ContinuationVars(in.ContextText, in.Style, in.IsSelection)
	if err != nil {
		return nil, err
	}
	return tpl.Format(ctx, vars)
}

func buildContinuationModelOptions(in *wfmodel.ContinuationInput) []model.Option {
	opts := make([]model.Option, 0, 3)
	if in == nil {
		return opts
	}
	if in.Temperature != nil {
		opts = append(opts, model.WithTemperature(*in.Temperature))
	}
	if in.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*in.MaxTokens))
	}
	if strings.TrimSpace(in.Model) != "" {
		opts = append(opts, model.WithModel(strings.TrimSpace(in.Model)))
	}
	return opts
}
