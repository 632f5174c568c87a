package realtime

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/MostafaGamal7/parking-realtime/pkg/api"
)

type (
	// Backoff computes reconnection delays from a ReconnectConfig
	Backoff struct {
		calc   backoffCalculator
		cfg    api.ReconnectConfig
		random func() float64
	}

	backoffCalculator func(base, mult float64, attempt int) float64
)

var backoffCalculators = map[string]backoffCalculator{
	api.BackoffTypeFixed: func(base, _ float64, _ int) float64 {
		return base
	},
	api.BackoffTypeLinear: func(base, _ float64, attempt int) float64 {
		return base * float64(attempt)
	},
	api.BackoffTypeExponential: func(base, mult float64, attempt int) float64 {
		return base * math.Pow(mult, float64(attempt-1))
	},
}

// NewBackoff creates a Backoff. random must return values in [0, 1); nil
// selects math/rand/v2
func NewBackoff(cfg api.ReconnectConfig, random func() float64) *Backoff {
	calc, ok := backoffCalculators[cfg.BackoffType]
	if !ok {
		calc = backoffCalculators[api.BackoffTypeExponential]
	}
	if random == nil {
		random = rand.Float64
	}
	return &Backoff{
		calc:   calc,
		cfg:    cfg,
		random: random,
	}
}

// Base returns the delay before the given 1-based attempt, without jitter,
// capped at the configured maximum
func (b *Backoff) Base(attempt int) time.Duration {
	attempt = max(attempt, 1)
	delay := b.calc(float64(b.cfg.BaseDelay), b.cfg.Multiplier, attempt)
	if delay >= float64(b.cfg.MaxDelay) {
		return b.cfg.MaxDelay
	}
	return time.Duration(delay)
}

// Delay returns Base(attempt) plus a uniform jitter in [0, Jitter)
func (b *Backoff) Delay(attempt int) time.Duration {
	delay := b.Base(attempt)
	if b.cfg.Jitter > 0 {
		delay += time.Duration(b.random() * float64(b.cfg.Jitter))
	}
	return delay
}
