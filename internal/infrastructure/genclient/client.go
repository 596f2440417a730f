// Package genclient 提供编辑器调用续写接口的 HTTP 客户端
package genclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"quill-ai-editor/internal/config"
	"quill-ai-editor/internal/domain/entity"
	"quill-ai-editor/internal/interfaces/http/dto"
	"quill-ai-editor/pkg/errors"
	"quill-ai-editor/pkg/logger"
	"quill-ai-editor/pkg/tracer"
)

const (
	// maxResponseBytes 响应体读取上限
	maxResponseBytes = 1 << 20

	// MessageUnavailable 服务端未返回错误信息时的通用提示
	MessageUnavailable = "The AI service is temporarily unavailable."
	// MessageTransport 网络层失败时的通用提示
	MessageTransport = "Could not reach the AI service."
)

// Client 续写接口客户端，每次 Generate 只发送一次请求，不做重试
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Option 客户端选项
type Option func(*Client)

// WithHTTPClient 替换底层 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New 创建客户端
func New(endpoint string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimSpace(endpoint),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig 根据配置创建客户端
func NewFromConfig(cfg config.ClientConfig, opts ...Option) *Client {
	return New(cfg.Endpoint, cfg.Timeout, opts...)
}

// Endpoint 返回请求地址
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Generate 发送续写请求并返回生成文本
//
// 非 2xx 返回 CodeUpstreamError，信息取自响应体 error 字段；
// 2xx 但 content 为空返回 CodeEmptyResponse；
// 网络失败或超时返回 CodeTransportFailed。
func (c *Client) Generate(ctx context.Context, in entity.GenerationInput) (string, error) {
	ctx, span := tracer.Start(ctx, "genclient.Generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("quill.style", in.Style.String()),
			attribute.String("quill.mode", string(entity.ModeOf(in.IsSelection))),
			attribute.Int("quill.context_bytes", len(in.ContextText)),
		),
	)
	defer span.End()

	text, err := c.do(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errors.Message(err))
		return "", err
	}
	return text, nil
}

func (c *Client) do(ctx context.Context, in entity.GenerationInput) (string, error) {
	body, err := json.Marshal(dto.GenerateRequest{
		ContextText: in.ContextText,
		Style:       in.Style.String(),
		IsSelection: in.IsSelection,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternalError, "failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, errors.CodeTransportFailed, MessageTransport)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn(ctx, "generate request failed",
			"endpoint", c.endpoint,
			"error", err.Error(),
		)
		return "", errors.Wrap(err, errors.CodeTransportFailed, MessageTransport)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", errors.Wrap(err, errors.CodeTransportFailed, MessageTransport)
	}

	logger.Debug(ctx, "generate response received",
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", upstreamError(resp.StatusCode, respBody)
	}

	var out dto.GenerateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", errors.Wrap(err, errors.CodeUpstreamError, MessageUnavailable).
			WithDetail("malformed response body")
	}
	if out.Content == "" {
		return "", errors.ErrEmptyResponse
	}
	return out.Content, nil
}

func upstreamError(status int, body []byte) *errors.AppError {
	message := MessageUnavailable
	var payload dto.GenerateErrorResponse
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Error) != "" {
		message = payload.Error
	}
	return errors.New(errors.CodeUpstreamError, message).
		WithDetail(fmt.Sprintf("status %d", status))
}
