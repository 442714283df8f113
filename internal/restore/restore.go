// Package restore adds Vietnamese diacritics to wire copy and applies the
// house style through a primary model with a fallback model.
package restore

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/hyperifyio/vnsdesk/internal/cache"
	"github.com/hyperifyio/vnsdesk/internal/llm"
	"github.com/hyperifyio/vnsdesk/internal/similarity"
)

// Defaults mirror the production settings.
const (
	DefaultPrimaryModel  = "gpt-4o"
	DefaultFallbackModel = "gpt-4o-mini-2024-07-18"
	DefaultMaxTokens     = 2048
)

// TransformationError means no model produced an acceptable rewrite.
type TransformationError struct {
	Attempts []llm.Attempt
	Err      error
}

func (e *TransformationError) Error() string {
	return fmt.Sprintf("diacritic restoration exhausted all models: %v", e.Err)
}

func (e *TransformationError) Unwrap() error { return e.Err }

// Options configures a Restorer. Zero values fall back to the defaults.
type Options struct {
	// Models are tried in order; defaults to primary then fallback.
	Models    []string
	Threshold float64
	MaxTokens int
	Timeout   time.Duration
	Cache     *cache.LLMCache
	// ForeignNames overrides the localized -> canonical name table.
	ForeignNames map[string]string
}

// Restorer turns raw article text into diacritic-restored, house-styled text.
type Restorer struct {
	chain llm.Chain
}

// New builds a Restorer over client.
func New(client llm.Client, opts Options) *Restorer {
	models := opts.Models
	if len(models) == 0 {
		models = []string{DefaultPrimaryModel, DefaultFallbackModel}
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = similarity.BodyThreshold
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	names := opts.ForeignNames
	if names == nil {
		names = ForeignNames
	}
	strategies := make([]llm.Strategy, 0, len(models))
	for _, m := range models {
		strategies = append(strategies, llm.ModelStrategy(client, llm.ModelConfig{
			Model:     m,
			System:    SystemPrompt,
			MaxTokens: maxTokens,
			Timeout:   opts.Timeout,
			Cache:     opts.Cache,
		}))
	}
	return &Restorer{chain: llm.Chain{
		Stage:      "restore",
		Strategies: strategies,
		Post:       func(s string) string { return RestoreForeignNames(norm.NFC.String(s), names) },
		Validate:   similarity.Validator{Threshold: threshold}.Check,
	}}
}

// Restore returns the first model output whose similarity to text clears
// the threshold, or a *TransformationError.
func (r *Restorer) Restore(ctx context.Context, text string) (string, error) {
	res, err := r.chain.Run(ctx, text)
	if err != nil {
		return "", &TransformationError{Attempts: res.Attempts, Err: err}
	}
	return res.Output, nil
}
