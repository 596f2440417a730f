package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill-ai-editor/internal/config"
)

func newTestFactory() *EinoFactory {
	return NewEinoFactory(&config.Config{
		LLM: config.LLMConfig{
			DefaultProvider: "groq",
			Providers: map[string]config.ProviderConfig{
				"groq": {
					APIKey:  "test-key",
					BaseURL: "https://api.groq.com/openai/v1",
					Model:   "llama-3.3-70b-versatile",
					Timeout: 30 * time.Second,
				},
				"openai": {Model: "gpt-4o-mini"},
			},
		},
	})
}

func TestEinoFactory_DefaultAndCache(t *testing.T) {
	f := newTestFactory()

	m1, err := f.Default(context.Background())
	require.NoError(t, err)
	m2, err := f.Get(context.Background(), " groq ")
	require.NoError(t, err)

	assert.Same(t, m1, m2)
}

func TestEinoFactory_Errors(t *testing.T) {
	f := newTestFactory()

	_, err := f.Get(context.Background(), "anthropic")
	assert.ErrorContains(t, err, "not found")

	_, err = f.Get(context.Background(), "openai")
	assert.ErrorContains(t, err, "api key missing")
}

func TestEinoFactory_Providers(t *testing.T) {
	f := newTestFactory()

	assert.Equal(t, []string{"groq", "openai"}, f.Providers())
	assert.Equal(t, "groq", f.DefaultProvider())
}
