package chain

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill-ai-editor/internal/domain/entity"
	wfmodel "quill-ai-editor/internal/workflow/model"
)

type fakeChatModel struct {
	mu       sync.Mutex
	messages []*schema.Message
	options  *model.Options
	reply    string
	err      error
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = input
	f.options = model.GetCommonOptions(&model.Options{}, opts...)
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

type fakeFactory struct {
	models map[string]model.BaseChatModel
	gets   int
}

func (f *fakeFactory) Get(_ context.Context, name string) (model.BaseChatModel, error) {
	f.gets++
	m, ok := f.models[name]
	if !ok {
		return nil, errors.New("provider " + name + " not found")
	}
	return m, nil
}

func float32Ptr(v float32) *float32 { return &v }
func intPtr(v int) *int             { return &v }

func TestContinuationChain_Invoke(t *testing.T) {
	fake := &fakeChatModel{reply: "The rain stopped."}
	factory := &fakeFactory{models: map[string]model.BaseChatModel{"groq": fake}}
	c := NewContinuationChain(factory)

	out, err := c.Invoke(context.Background(), &wfmodel.ContinuationInput{
		ContextText: "It rained all night.",
		Style:       entity.StyleCreative,
		Provider:    "groq",
		Model:       "llama-3.3-70b-versatile",
		Temperature: float32Ptr(0.7),
		MaxTokens:   intPtr(500),
	})
	require.NoError(t, err)
	assert.Equal(t, "The rain stopped.", out.Content)

	require.Len(t, fake.messages, 2)
	assert.Equal(t, schema.System, fake.messages[0].Role)
	assert.Contains(t, fake.messages[0].Content, "creative, imaginative")
	assert.Equal(t, "Continue writing after:\n\nIt rained all night.", fake.messages[1].Content)

	require.NotNil(t, fake.options.Temperature)
	assert.InDelta(t, 0.7, *fake.options.Temperature, 1e-6)
	require.NotNil(t, fake.options.MaxTokens)
	assert.Equal(t, 500, *fake.options.MaxTokens)
	require.NotNil(t, fake.options.Model)
	assert.Equal(t, "llama-3.3-70b-versatile", *fake.options.Model)
}

func TestContinuationChain_CachesRunnable(t *testing.T) {
	fake := &fakeChatModel{reply: "ok"}
	factory := &fakeFactory{models: map[string]model.BaseChatModel{"groq": fake}}
	c := NewContinuationChain(factory)

	in := &wfmodel.ContinuationInput{ContextText: "x", Style: entity.StyleAuto, Provider: "groq"}
	_, err := c.Invoke(context.Background(), in)
	require.NoError(t, err)
	_, err = c.Invoke(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 1, factory.gets)
}

func TestContinuationChain_Errors(t *testing.T) {
	fake := &fakeChatModel{err: errors.New("upstream 503")}
	factory := &fakeFactory{models: map[string]model.BaseChatModel{"groq": fake}}
	c := NewContinuationChain(factory)

	_, err := c.Invoke(context.Background(), &wfmodel.ContinuationInput{ContextText: "x", Style: entity.StyleAuto, Provider: "groq"})
	assert.ErrorContains(t, err, "upstream 503")

	_, err = c.Invoke(context.Background(), &wfmodel.ContinuationInput{ContextText: "x", Style: entity.StyleAuto, Provider: "missing"})
	assert.Error(t, err)

	_, err = c.Invoke(context.Background(), &wfmodel.ContinuationInput{ContextText: "  ", Style: entity.StyleAuto, Provider: "groq"})
	assert.Error(t, err)

	_, err = c.Invoke(context.Background(), &wfmodel.ContinuationInput{ContextText: "x", Style: entity.Style("poetic"), Provider: "groq"})
	assert.Error(t, err)
}
