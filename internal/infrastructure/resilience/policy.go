package resilience

import (
	"math"
	"time"
)

// BackoffPolicy computes the wait before a given retry or poll attempt.
// Attempt 0 yields Initial; each further attempt multiplies by Multiplier,
// capped at Max. Pure and jitter-free so poll cadences are reproducible.
type BackoffPolicy struct {
	Initial    time.Duration
	Multiplier float64
	Max        time.Duration
}

func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		Initial:    1 * time.Second,
		Multiplier: 1.5,
		Max:        8 * time.Second,
	}
}

func (p BackoffPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	initial := p.Initial
	if initial <= 0 {
		initial = DefaultBackoffPolicy().Initial
	}
	multiplier := p.Multiplier
	if multiplier < 1.0 {
		multiplier = DefaultBackoffPolicy().Multiplier
	}
	max := p.Max
	if max < initial {
		max = initial
	}

	delay := float64(initial) * math.Pow(multiplier, float64(attempt))
	if delay >= float64(max) || math.IsInf(delay, 1) {
		return max
	}
	return time.Duration(delay)
}

type Config struct {
	RetryMaxAttempts int
	RetryBackoff     BackoffPolicy

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts: 3,
		RetryBackoff: BackoffPolicy{
			Initial:    100 * time.Millisecond,
			Multiplier: 2.0,
			Max:        400 * time.Millisecond,
		},

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	if out.RetryMaxAttempts <= 0 {
		out.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if out.RetryBackoff.Initial <= 0 {
		out.RetryBackoff.Initial = def.RetryBackoff.Initial
	}
	if out.RetryBackoff.Max < out.RetryBackoff.Initial {
		out.RetryBackoff.Max = out.RetryBackoff.Initial
	}
	if out.RetryBackoff.Multiplier < 1.0 {
		out.RetryBackoff.Multiplier = def.RetryBackoff.Multiplier
	}

	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}

	return out
}
