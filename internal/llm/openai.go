package llm

import (
	"context"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// openAIProvider serves OpenAI and any OpenAI-compatible endpoint (OpenRouter,
// Together, Groq) via a base-URL override.
type openAIProvider struct {
	name   string
	model  string
	client *openai.Client
}

func newOpenAIProvider(name string, cfg Config) *openAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	return &openAIProvider{
		name:   name,
		model:  cfg.Model,
		client: openai.NewClientWithConfig(clientCfg),
	}
}

func (p *openAIProvider) Name() string { return p.name }

func (p *openAIProvider) Complete(ctx context.Context, req Request) (Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		MaxTokens:   maxTokens,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
	})
	if err != nil {
		return Response{}, &GenerationError{Provider: p.name, Message: "chat completion failed", Err: err}
	}
	if len(resp.Choices) == 0 {
		return Response{}, &GenerationError{Provider: p.name, Message: "empty choices in response"}
	}

	return Response{
		Text:   resp.Choices[0].Message.Content,
		Tokens: resp.Usage.TotalTokens,
	}, nil
}
