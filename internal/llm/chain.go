package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrExhausted means every strategy in a Chain failed or was rejected.
var ErrExhausted = errors.New("all strategies exhausted")

// Outcome classifies a single attempt.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

// Attempt records what one strategy produced.
type Attempt struct {
	Strategy string
	Outcome  Outcome
	Output   string
	Score    float64
	Err      error
}

// Result is the accepted output plus the trail of attempts that led to it.
type Result struct {
	Output   string
	Strategy string
	Score    float64
	Attempts []Attempt
}

// ExhaustedError carries every attempt made before giving up.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		switch a.Outcome {
		case OutcomeFailed:
			parts = append(parts, fmt.Sprintf("%s: %v", a.Strategy, a.Err))
		default:
			parts = append(parts, fmt.Sprintf("%s: similarity %.2f", a.Strategy, a.Score))
		}
	}
	if len(parts) == 0 {
		return ErrExhausted.Error()
	}
	return ErrExhausted.Error() + " (" + strings.Join(parts, "; ") + ")"
}

func (e *ExhaustedError) Unwrap() error { return ErrExhausted }

// Chain tries strategies in order: attempt, post-process, validate, then
// accept or continue. The first accepted output wins.
type Chain struct {
	// Stage labels log lines, e.g. "restore" or "caption".
	Stage      string
	Strategies []Strategy
	// Post runs on every raw output before validation. Optional.
	Post func(string) string
	// Validate scores the candidate against the input. Required.
	Validate func(input, candidate string) (float64, bool)
}

// Run executes the chain against input.
func (c Chain) Run(ctx context.Context, input string) (Result, error) {
	attempts := make([]Attempt, 0, len(c.Strategies))
	for _, s := range c.Strategies {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, Attempt{Strategy: s.Name, Outcome: OutcomeFailed, Err: err})
			break
		}
		out, err := s.Run(ctx, input)
		if err != nil {
			log.Warn().Err(err).Str("stage", c.Stage).Str("model", s.Name).Msg("strategy failed; trying next")
			attempts = append(attempts, Attempt{Strategy: s.Name, Outcome: OutcomeFailed, Err: err})
			continue
		}
		if c.Post != nil {
			out = c.Post(out)
		}
		score, ok := c.Validate(input, out)
		if !ok {
			log.Warn().Str("stage", c.Stage).Str("model", s.Name).Float64("score", score).Msg("candidate rejected")
			attempts = append(attempts, Attempt{Strategy: s.Name, Outcome: OutcomeRejected, Output: out, Score: score})
			continue
		}
		log.Debug().Str("stage", c.Stage).Str("model", s.Name).Float64("score", score).Msg("candidate accepted")
		attempts = append(attempts, Attempt{Strategy: s.Name, Outcome: OutcomeAccepted, Output: out, Score: score})
		return Result{Output: out, Strategy: s.Name, Score: score, Attempts: attempts}, nil
	}
	return Result{Attempts: attempts}, &ExhaustedError{Attempts: attempts}
}
