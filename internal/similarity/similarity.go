// Package similarity scores how closely a model rewrite tracks its source text.
package similarity

import (
	"github.com/pmezard/go-difflib/difflib"
)

// Default thresholds for the two call sites. Callers read these from config.
const (
	BodyThreshold    = 0.70
	CaptionThreshold = 0.80
)

// Ratio returns the Ratcliff/Obershelp similarity of a and b in [0,1],
// computed over runes so that multi-byte diacritics count as one element.
// Two empty strings are identical and score 1.
func Ratio(a, b string) float64 {
	m := difflib.NewMatcher(runes(a), runes(b))
	return m.Ratio()
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// Validator accepts a candidate when its ratio against the source reaches Threshold.
type Validator struct {
	Threshold float64
}

// Check returns the similarity score and whether it clears the threshold.
func (v Validator) Check(source, candidate string) (float64, bool) {
	score := Ratio(source, candidate)
	return score, score >= v.Threshold
}
