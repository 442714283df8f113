package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/vnsdesk/internal/budget"
	"github.com/hyperifyio/vnsdesk/internal/cache"
)

// Strategy is one named way of transforming an input, typically one model.
type Strategy struct {
	Name string
	Run  func(ctx context.Context, input string) (string, error)
}

// ModelConfig describes a single deterministic completion call.
type ModelConfig struct {
	Model  string
	System string
	// MaxTokens is the output floor; longer inputs get more, up to what
	// the model's context window leaves.
	MaxTokens int
	// Timeout bounds the call. Zero leaves it to the caller's context.
	Timeout time.Duration
	// Cache, when set, serves repeated (model, system, input) triples from disk.
	Cache *cache.LLMCache
}

// ErrEmptyCompletion is returned when the model answered with no choices or blank text.
var ErrEmptyCompletion = errors.New("empty completion")

// ModelStrategy returns a Strategy that sends input as the user message with
// cfg.System as the system instruction at temperature 0.
func ModelStrategy(client Client, cfg ModelConfig) Strategy {
	return Strategy{
		Name: cfg.Model,
		Run: func(ctx context.Context, input string) (string, error) {
			return complete(ctx, client, cfg, input)
		},
	}
}

func complete(ctx context.Context, client Client, cfg ModelConfig, input string) (string, error) {
	if client == nil || strings.TrimSpace(cfg.Model) == "" {
		return "", errors.New("model strategy not configured")
	}
	key := cache.KeyFrom(cfg.Model, cfg.System+"\n\n"+input)
	if cfg.Cache != nil {
		if raw, ok, _ := cfg.Cache.Get(ctx, key); ok {
			log.Debug().Str("model", cfg.Model).Msg("completion served from cache")
			return string(raw), nil
		}
	}
	maxTokens, err := budget.OutputTokens(cfg.Model, cfg.System, input, cfg.MaxTokens)
	if err != nil {
		return "", fmt.Errorf("%s: %w", cfg.Model, err)
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: cfg.System},
			{Role: openai.ChatMessageRoleUser, Content: input},
		},
		MaxTokens:   maxTokens,
		Temperature: math.SmallestNonzeroFloat32, // 0 would be dropped by omitempty
		N:           1,
	})
	if err != nil {
		return "", fmt.Errorf("%s completion: %w", cfg.Model, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptyCompletion
	}
	if cfg.Cache != nil {
		_ = cfg.Cache.Save(ctx, key, []byte(out))
	}
	return out, nil
}
