package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// Client is the minimal interface needed to call a chat model. It mirrors
// CreateChatCompletion so any OpenAI-compatible backend can be adapted.
type Client interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ModelLister is an optional capability used for the startup preflight.
// Callers detect it with a type assertion.
type ModelLister interface {
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// OpenAIProvider adapts *openai.Client to the Client/ModelLister interfaces.
type OpenAIProvider struct {
	Inner *openai.Client
}

// NewOpenAIProvider builds a provider for apiKey, optionally pointed at an
// OpenAI-compatible baseURL.
func NewOpenAIProvider(apiKey, baseURL string, configure func(*openai.ClientConfig)) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if configure != nil {
		configure(&cfg)
	}
	return &OpenAIProvider{Inner: openai.NewClientWithConfig(cfg)}
}

func (p *OpenAIProvider) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return p.Inner.CreateChatCompletion(ctx, request)
}

func (p *OpenAIProvider) ListModels(ctx context.Context) (openai.ModelsList, error) {
	return p.Inner.ListModels(ctx)
}
