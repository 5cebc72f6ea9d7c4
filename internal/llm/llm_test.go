package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"queries": []}`, `{"queries": []}`},
		{"fenced", "```json\n{\"queries\": []}\n```", `{"queries": []}`},
		{"embedded in prose", `Here you go: {"queries": []} hope that helps`, `{"queries": []}`},
		{"no object", "no json here", ""},
		{"empty", "", ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, ExtractJSON(c.in))
		})
	}
}

func TestNewProviderRequiresAPIKey(t *testing.T) {
	_, err := NewProvider(Config{Provider: "openai"})
	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, "openai", genErr.Provider)
}

func TestNewProviderDefaults(t *testing.T) {
	p, err := NewProvider(Config{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, "openrouter", p.Name())

	p, err = NewProvider(Config{Provider: "anthropic", APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())

	_, err = NewProvider(Config{Provider: "cohere", APIKey: "sk-test"})
	assert.Error(t, err)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LLM_PROVIDER", " OpenAI ")
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("LLM_MODEL", "gpt-4o-mini")
	t.Setenv("LLM_BASE_URL", "")

	cfg := ConfigFromEnv()
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, "", cfg.BaseURL)
}

func TestGenerationErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &GenerationError{Provider: "openai", Message: "call failed", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "openai")
	assert.Contains(t, err.Error(), "boom")
}
