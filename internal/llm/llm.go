// Package llm provides the text-generation providers used to draft, fix,
// explain and optimize SQL. Everything a provider returns is untrusted text
// and must pass through the guard package before use.
package llm

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Provider is a chat-style text generator.
type Provider interface {
	// Complete sends a system+user prompt pair and returns the raw text.
	Complete(ctx context.Context, req Request) (Response, error)

	// Name returns the provider name for logging.
	Name() string
}

// Request is one completion call.
type Request struct {
	System    string
	User      string
	MaxTokens int // 0 = provider default
}

// Response carries the raw model output and token usage for cost tracking.
type Response struct {
	Text   string
	Tokens int
}

// GenerationError covers transport failures, missing credentials and
// non-success upstream responses.
type GenerationError struct {
	Provider string
	Message  string
	Err      error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s generation failed: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s generation failed: %s", e.Provider, e.Message)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Config holds provider configuration.
type Config struct {
	Provider string // "openrouter", "openai" or "anthropic"
	APIKey   string
	Model    string
	BaseURL  string // for OpenRouter, proxies, etc.
}

// ConfigFromEnv reads provider configuration from environment variables.
func ConfigFromEnv() Config {
	return Config{
		Provider: strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER"))),
		APIKey:   os.Getenv("LLM_API_KEY"),
		Model:    os.Getenv("LLM_MODEL"),
		BaseURL:  os.Getenv("LLM_BASE_URL"),
	}
}

// NewProvider creates a provider from configuration.
func NewProvider(cfg Config) (Provider, error) {
	if cfg.Provider == "" {
		cfg.Provider = "openrouter"
	}
	if cfg.APIKey == "" {
		return nil, &GenerationError{Provider: cfg.Provider, Message: "LLM_API_KEY is required"}
	}

	switch cfg.Provider {
	case "openrouter":
		if cfg.Model == "" {
			cfg.Model = "deepseek/deepseek-chat"
		}
		if cfg.BaseURL == "" {
			cfg.BaseURL = "https://openrouter.ai/api/v1"
		}
		return newOpenAIProvider("openrouter", cfg), nil

	case "openai":
		if cfg.Model == "" {
			cfg.Model = "gpt-4o"
		}
		return newOpenAIProvider("openai", cfg), nil

	case "anthropic":
		if cfg.Model == "" {
			cfg.Model = "claude-sonnet-4-20250514"
		}
		return newAnthropicProvider(cfg), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %q (supported: openrouter, openai, anthropic)", cfg.Provider)
	}
}

// NewProviderFromEnv creates a provider from environment variables.
func NewProviderFromEnv() (Provider, error) {
	return NewProvider(ConfigFromEnv())
}

var (
	openFenceRe  = regexp.MustCompile("^```[\\w]*\\s*")
	closeFenceRe = regexp.MustCompile("\\s*```$")
)

// ExtractJSON pulls a JSON object out of model output that may be wrapped in
// fences or prose. Returns "" when no object is present.
func ExtractJSON(text string) string {
	t := strings.TrimSpace(text)
	t = openFenceRe.ReplaceAllString(t, "")
	t = closeFenceRe.ReplaceAllString(t, "")
	t = strings.TrimSpace(t)

	if strings.HasPrefix(t, "{") && strings.HasSuffix(t, "}") {
		return t
	}
	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		return t[start : end+1]
	}
	return ""
}
