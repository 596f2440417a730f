package callback

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"quill-ai-editor/internal/domain/service"
	"quill-ai-editor/pkg/metrics"
)

var tracer = otel.Tracer("eino")

// modelCall 单次模型调用在 OnStart 与 OnEnd/OnError 之间共享的状态
type modelCall struct {
	start    time.Time
	workflow string
	provider string
	model    string
	span     trace.Span
}

type modelCallKey struct{}

func newChatModelCallbackHandler() *cbtemplate.ModelCallbackHandler {
	return &cbtemplate.ModelCallbackHandler{
		OnStart: onModelStart,
		OnEnd:   onModelEnd,
		OnError: onModelError,
	}
}

func onModelStart(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
	call := &modelCall{
		start:    time.Now(),
		workflow: service.WorkflowFromContext(ctx),
		provider: service.ProviderFromContext(ctx),
	}
	if input != nil && input.Config != nil {
		call.model = input.Config.Model
	}

	attrs := []attribute.KeyValue{
		attribute.String("eino.workflow", call.workflow),
		attribute.String("llm.provider", call.provider),
		attribute.String("llm.model", call.model),
	}
	if info != nil {
		attrs = append(attrs, attribute.String("eino.node_name", info.Name))
	}

	ctx, call.span = tracer.Start(ctx, "llm.generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	return context.WithValue(ctx, modelCallKey{}, call)
}

func onModelEnd(ctx context.Context, _ *einocb.RunInfo, output *model.CallbackOutput) context.Context {
	call := modelCallFrom(ctx)
	if output != nil && output.Config != nil && output.Config.Model != "" {
		call.model = output.Config.Model
	}

	if output != nil && output.TokenUsage != nil {
		prompt, completion := output.TokenUsage.PromptTokens, output.TokenUsage.CompletionTokens
		metrics.LLMTokensUsed.WithLabelValues(call.workflow, call.provider, call.model, "prompt").Add(float64(prompt))
		metrics.LLMTokensUsed.WithLabelValues(call.workflow, call.provider, call.model, "completion").Add(float64(completion))

		// 落库在请求结束后由应用层完成，这里只累计
		service.LLMUsageFromContext(ctx).Add(call.model, prompt, completion)

		call.span.SetAttributes(
			attribute.Int("llm.prompt_tokens", prompt),
			attribute.Int("llm.completion_tokens", completion),
		)
	}

	call.finish(nil)
	return ctx
}

func onModelError(ctx context.Context, _ *einocb.RunInfo, err error) context.Context {
	modelCallFrom(ctx).finish(err)
	return ctx
}

// modelCallFrom 取出 OnStart 保存的状态。缺失时返回不产生 span 的空状态。
func modelCallFrom(ctx context.Context) *modelCall {
	if call, ok := ctx.Value(modelCallKey{}).(*modelCall); ok {
		return call
	}
	return &modelCall{
		workflow: service.WorkflowFromContext(ctx),
		provider: service.ProviderFromContext(ctx),
		span:     trace.SpanFromContext(context.Background()),
	}
}

func (c *modelCall) elapsed() time.Duration {
	if c.start.IsZero() {
		return 0
	}
	return time.Since(c.start)
}

func (c *modelCall) finish(err error) {
	status := "success"
	if err != nil {
		status = "error"
		c.span.RecordError(err)
		c.span.SetStatus(codes.Error, err.Error())
	}

	metrics.LLMCallTotal.WithLabelValues(c.workflow, c.provider, c.model, status).Inc()
	if d := c.elapsed(); d > 0 {
		metrics.LLMCallDuration.WithLabelValues(c.workflow, c.provider, c.model).Observe(d.Seconds())
	}
	c.span.End()
}
