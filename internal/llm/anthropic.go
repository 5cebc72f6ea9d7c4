package llm

import (
	"context"
	"net/http"
	"time"

	anthropic "github.com/liushuangls/go-anthropic/v2"
)

type anthropicProvider struct {
	model  string
	client *anthropic.Client
}

func newAnthropicProvider(cfg Config) *anthropicProvider {
	opts := []anthropic.ClientOption{
		anthropic.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	return &anthropicProvider{
		model:  cfg.Model,
		client: anthropic.NewClient(cfg.APIKey, opts...),
	}
}

func (p *anthropicProvider) Name() string { return "anthropic" }

func (p *anthropicProvider) Complete(ctx context.Context, req Request) (Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	resp, err := p.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(p.model),
		System:    req.System,
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(req.User),
		},
	})
	if err != nil {
		return Response{}, &GenerationError{Provider: "anthropic", Message: "messages call failed", Err: err}
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			text = *block.Text
			break
		}
	}
	if text == "" {
		return Response{}, &GenerationError{Provider: "anthropic", Message: "no text block in response"}
	}

	return Response{
		Text:   text,
		Tokens: resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}
