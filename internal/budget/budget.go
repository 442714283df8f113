// Package budget sizes completion requests against a model's context window.
//
// Token counts are estimated from UTF-8 byte length at roughly four bytes per
// token. Vietnamese with diacritics spends two or three bytes on many
// letters, so the estimate errs high, which is the safe direction here.
package budget

import (
	"errors"
	"math"
	"strings"
)

// ErrPromptTooLarge means the prompt leaves no room for the rewrite.
var ErrPromptTooLarge = errors.New("prompt exceeds model context")

// rewriteGrowth covers a rewrite that comes back slightly longer than its
// input, mostly from combining marks the tokenizer splits.
const rewriteGrowth = 1.5

// EstimateTokens returns the estimated token count of s. Non-empty strings
// count as at least one token.
func EstimateTokens(s string) int {
	if len(s) == 0 {
		return 0
	}
	return int(math.Ceil(float64(len(s)) / 4.0))
}

// ModelContextTokens returns an approximate context window for modelName.
// Dated snapshots match their family; unknown models get 8192.
func ModelContextTokens(modelName string) int {
	name := strings.ToLower(strings.TrimSpace(modelName))
	if v, ok := knownModelMax[name]; ok {
		return v
	}
	best, size := "", 8192
	for prefix, v := range knownModelMax {
		if strings.HasPrefix(name, prefix+"-") && len(prefix) > len(best) {
			best, size = prefix, v
		}
	}
	if best != "" {
		return size
	}
	switch {
	case strings.HasSuffix(name, "128k"):
		return 128_000
	case strings.HasSuffix(name, "32k"):
		return 32_768
	}
	return 8192
}

// HeadroomTokens is held back from every request for message framing and
// tokenizer drift: 5% of the window, at least 512.
func HeadroomTokens(modelName string) int {
	dyn := int(math.Ceil(float64(ModelContextTokens(modelName)) * 0.05))
	if dyn < 512 {
		return 512
	}
	return dyn
}

// OutputTokens returns max_tokens for rewriting input under system with
// modelName. The result is at least floor and enough for a rewrite somewhat
// longer than input, capped by what the context window has left.
func OutputTokens(modelName, system, input string, floor int) (int, error) {
	prompt := EstimateTokens(system) + EstimateTokens(input)
	avail := ModelContextTokens(modelName) - HeadroomTokens(modelName) - prompt
	if avail <= 0 {
		return 0, ErrPromptTooLarge
	}
	want := int(math.Ceil(float64(EstimateTokens(input)) * rewriteGrowth))
	if want < floor {
		want = floor
	}
	if want > avail {
		want = avail
	}
	return want, nil
}

var knownModelMax = map[string]int{
	"gpt-4o":        128_000,
	"gpt-4o-mini":   128_000,
	"gpt-4-turbo":   128_000,
	"gpt-4.1":       1_000_000,
	"gpt-4.1-mini":  1_000_000,
	"gpt-3.5-turbo": 16_384,
	"llama-3.1":     128_000,
	"qwen2.5":       32_768,
}
