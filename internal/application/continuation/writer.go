// Package continuation 实现服务端续写用例：参数校验、模型调用、指标与用量流水
package continuation

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"quill-ai-editor/internal/config"
	"quill-ai-editor/internal/domain/entity"
	llmctx "quill-ai-editor/internal/domain/service"
	workflowchain "quill-ai-editor/internal/workflow/chain"
	wfmodel "quill-ai-editor/internal/workflow/model"
	"quill-ai-editor/pkg/errors"
	"quill-ai-editor/pkg/logger"
	"quill-ai-editor/pkg/metrics"
)

// Input 续写请求
type Input struct {
	ContextText string
	Style       entity.Style
	IsSelection bool

	// Provider 为空时使用默认提供商
	Provider  string
	RequestID string
}

// Writer 续写用例
type Writer struct {
	chain *workflowchain.ContinuationChain
	gen   config.GenerationConfig
	llm   config.LLMConfig
	usage *UsageRecorder
}

func NewWriter(factory workflowchain.ChatModelFactory, cfg *config.Config, usage *UsageRecorder) *Writer {
	return &Writer{
		chain: workflowchain.NewContinuationChain(factory),
		gen:   cfg.Generation,
		llm:   cfg.LLM,
		usage: usage,
	}
}

// Validate 校验请求，返回的错误均为 AppError
func (w *Writer) Validate(in *Input) error {
	if in == nil {
		return errors.ErrInvalidParam.WithDetail("input is nil")
	}
	if !in.Style.Valid() {
		return errors.ErrUnsupportedStyle.WithDetail(fmt.Sprintf("style %q", in.Style))
	}
	if strings.TrimSpace(in.ContextText) == "" {
		return errors.ErrInvalidParam.WithDetail("contextText is required")
	}
	if limit := w.gen.MaxContextRunes; limit > 0 {
		if n := utf8.RuneCountInString(in.ContextText); n > limit {
			return errors.ErrContextTooLong.WithDetail(fmt.Sprintf("%d characters exceeds limit %d", n, limit))
		}
	}
	return nil
}

// Write 执行一次续写。模型调用失败统一返回 ErrGenerationFailed，原始错误只记录日志。
func (w *Writer) Write(ctx context.Context, in *Input) (*wfmodel.ContinuationOutput, error) {
	if w == nil || w.chain == nil {
		return nil, errors.ErrServiceUnavailable.WithDetail("continuation workflow not configured")
	}
	if err := w.Validate(in); err != nil {
		return nil, err
	}

	provider, providerCfg, err := w.llm.Resolve(in.Provider)
	if err != nil {
		logger.Warn(ctx, "llm provider unavailable", "provider", provider, "error", err.Error())
		return nil, errors.ErrServiceUnavailable.WithError(err)
	}
	mode := entity.ModeOf(in.IsSelection)
	contextRunes := utf8.RuneCountInString(in.ContextText)

	temperature := float32(w.gen.Temperature)
	maxTokens := w.gen.MaxTokens
	wfIn := &wfmodel.ContinuationInput{
		ContextText: in.ContextText,
		Style:       in.Style,
		IsSelection: in.IsSelection,
		Provider:    provider,
		Model:       providerCfg.Model,
		Temperature: &temperature,
	}
	if maxTokens > 0 {
		wfIn.MaxTokens = &maxTokens
	}

	callCtx := logger.WithContext(ctx, logger.StyleKey, in.Style.String())
	callCtx, usage := llmctx.WithLLMUsage(callCtx)
	if w.gen.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, w.gen.Timeout)
		defer cancel()
	}

	metrics.GenerationContextRunes.WithLabelValues(string(mode)).Observe(float64(contextRunes))
	start := time.Now()
	outMsg, err := w.chain.Invoke(callCtx, wfIn)
	elapsed := time.Since(start)
	metrics.GenerationDuration.WithLabelValues(in.Style.String(), string(mode)).Observe(elapsed.Seconds())

	meta := wfmodel.LLMUsageMeta{
		Provider:    provider,
		Model:       providerCfg.Model,
		Temperature: float64(temperature),
		GeneratedAt: time.Now().UTC(),
	}
	if outMsg != nil && outMsg.ResponseMeta != nil && outMsg.ResponseMeta.Usage != nil {
		meta.PromptTokens = outMsg.ResponseMeta.Usage.PromptTokens
		meta.CompletionTokens = outMsg.ResponseMeta.Usage.CompletionTokens
	} else if name, p, c := usage.Snapshot(); p+c > 0 {
		meta.PromptTokens, meta.CompletionTokens = p, c
		if name != "" {
			meta.Model = name
		}
	}

	status := entity.GenerationSucceeded
	if err != nil {
		status = entity.GenerationFailed
	}
	metrics.GenerationTotal.WithLabelValues(in.Style.String(), string(mode), string(status)).Inc()
	w.record(ctx, in, mode, status, contextRunes, meta, elapsed)

	if err != nil {
		logger.Error(callCtx, "continuation generation failed", err,
			"provider", provider,
			"mode", string(mode),
			"duration_ms", elapsed.Milliseconds(),
		)
		return nil, errors.ErrGenerationFailed.WithError(err)
	}

	content := strings.TrimSpace(outMsg.Content)
	if content == "" {
		logger.Warn(callCtx, "model returned empty continuation", "provider", provider)
	}

	logger.Info(callCtx, "continuation generated",
		"provider", provider,
		"mode", string(mode),
		"context_runes", contextRunes,
		"content_runes", utf8.RuneCountInString(content),
		"duration_ms", elapsed.Milliseconds(),
	)

	return &wfmodel.ContinuationOutput{
		Content: content,
		Meta:    meta,
	}, nil
}

func (w *Writer) record(ctx context.Context, in *Input, mode entity.Mode, status entity.GenerationStatus, contextRunes int, meta wfmodel.LLMUsageMeta, elapsed time.Duration) {
	if !w.usage.Enabled() {
		return
	}
	err := w.usage.Record(ctx, &entity.GenerationUsageEvent{
		RequestID:        in.RequestID,
		Style:            in.Style,
		Mode:             mode,
		Provider:         meta.Provider,
		Model:            meta.Model,
		Status:           status,
		ContextRunes:     contextRunes,
		TokensPrompt:     meta.PromptTokens,
		TokensCompletion: meta.CompletionTokens,
		DurationMs:       int(elapsed.Milliseconds()),
	})
	if err != nil {
		logger.Warn(ctx, "record generation usage failed", "error", err.Error())
	}
}
