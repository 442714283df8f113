package image

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"

	"github.com/hyperifyio/vnsdesk/internal/cache"
	"github.com/hyperifyio/vnsdesk/internal/llm"
	"github.com/hyperifyio/vnsdesk/internal/restore"
	"github.com/hyperifyio/vnsdesk/internal/similarity"
)

// DefaultCaptionMaxTokens bounds caption completions.
const DefaultCaptionMaxTokens = 512

// CaptionPrompt limits the model to diacritics on proper nouns.
const CaptionPrompt = "Add Vietnamese diacritics to proper nouns only. Don't translate anything. Keep English terms untouched. Return only the caption."

// CaptionOptions configures a CaptionRewriter. Zero values use the defaults.
type CaptionOptions struct {
	Models    []string
	Threshold float64
	MaxTokens int
	Timeout   time.Duration
	Cache     *cache.LLMCache
}

// CaptionRewriter restores diacritics in photo captions.
type CaptionRewriter struct {
	chain llm.Chain
}

func NewCaptionRewriter(client llm.Client, opts CaptionOptions) *CaptionRewriter {
	models := opts.Models
	if len(models) == 0 {
		models = []string{restore.DefaultPrimaryModel, restore.DefaultFallbackModel}
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = similarity.CaptionThreshold
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultCaptionMaxTokens
	}
	strategies := make([]llm.Strategy, 0, len(models))
	for _, m := range models {
		strategies = append(strategies, llm.ModelStrategy(client, llm.ModelConfig{
			Model:     m,
			System:    CaptionPrompt,
			MaxTokens: maxTokens,
			Timeout:   opts.Timeout,
			Cache:     opts.Cache,
		}))
	}
	return &CaptionRewriter{chain: llm.Chain{
		Stage:      "caption",
		Strategies: strategies,
		Post:       norm.NFC.String,
		Validate:   similarity.Validator{Threshold: threshold}.Check,
	}}
}

// Rewrite returns the accepted rewrite and true, or caption unchanged and
// false when no model produced an acceptable candidate. It never fails.
func (r *CaptionRewriter) Rewrite(ctx context.Context, caption string) (string, bool) {
	if r == nil || strings.TrimSpace(caption) == "" {
		return caption, false
	}
	res, err := r.chain.Run(ctx, caption)
	if err != nil {
		log.Warn().Err(err).Str("stage", "caption").Msg("keeping original caption")
		return caption, false
	}
	return res.Output, true
}
