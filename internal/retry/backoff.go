package retry

import (
	"math"
	"math/rand"
	"time"

	"github.com/vvka-141/clusterha/pkg/clusterha"
)

// ExponentialBackoff implements capped multiplicative backoff with optional jitter.
type ExponentialBackoff struct {
	// initialDelay is the delay before the first attempt
	initialDelay time.Duration

	// maxDelay is the maximum delay between attempts
	maxDelay time.Duration

	// multiplier is the factor by which delay increases (typically 2.0)
	multiplier float64

	// maxAttempts is the maximum number of attempts (0 = no attempts)
	maxAttempts int

	// jitter adds randomness to prevent thundering herd (0.0-1.0).
	// Jitter of 0.1 means +/- 10% randomness. Zero keeps delays deterministic.
	jitter float64

	// jitterFunc provides random values [0, 1) for jitter calculation (defaults to rand.Float64)
	jitterFunc func() float64
}

// BackoffOption is a functional option for configuring ExponentialBackoff.
type BackoffOption func(*ExponentialBackoff)

// WithInitialDelay sets the delay before the first attempt.
func WithInitialDelay(d time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) {
		b.initialDelay = d
	}
}

// WithMaxDelay sets the maximum delay between attempts.
func WithMaxDelay(d time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) {
		b.maxDelay = d
	}
}

// WithMultiplier sets the factor by which delay increases between attempts.
func WithMultiplier(m float64) BackoffOption {
	return func(b *ExponentialBackoff) {
		b.multiplier = m
	}
}

// WithJitter sets the jitter factor (0.0-1.0) to add randomness to delays.
func WithJitter(j float64) BackoffOption {
	return func(b *ExponentialBackoff) {
		b.jitter = j
	}
}

// WithJitterFunc sets a custom function for generating random jitter values.
func WithJitterFunc(f func() float64) BackoffOption {
	return func(b *ExponentialBackoff) {
		b.jitterFunc = f
	}
}

// NewExponentialBackoff creates a backoff strategy with the reconnect defaults:
// 100ms initial delay, doubling, capped at 5s, no jitter.
//
// Example:
//
//	backoff := retry.NewExponentialBackoff(53,
//	    retry.WithInitialDelay(200 * time.Millisecond),
//	    retry.WithMaxDelay(10 * time.Second),
//	)
func NewExponentialBackoff(maxAttempts int, opts ...BackoffOption) *ExponentialBackoff {
	b := &ExponentialBackoff{
		initialDelay: clusterha.DefaultReconnectRetryInterval,
		maxDelay:     clusterha.DefaultReconnectMaxRetryInterval,
		multiplier:   clusterha.DefaultReconnectRetryMultiplier,
		maxAttempts:  maxAttempts,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// NewBackoffFromConfig creates the backoff strategy described by a RetryConfig.
func NewBackoffFromConfig(cfg clusterha.RetryConfig) *ExponentialBackoff {
	return NewExponentialBackoff(cfg.MaxAttempts,
		WithInitialDelay(cfg.BaseInterval),
		WithMaxDelay(cfg.MaxInterval),
		WithMultiplier(cfg.Multiplier),
		WithJitter(cfg.Jitter),
	)
}

// NextDelay returns min(initialDelay * multiplier^(attempt-1), maxDelay),
// then applies jitter. attempt is one-indexed; values below 1 count as 1.
func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(b.initialDelay) * math.Pow(b.multiplier, float64(attempt-1))
	if delay > float64(b.maxDelay) {
		delay = float64(b.maxDelay)
	}

	if b.jitter > 0 {
		jitterFunc := b.jitterFunc
		if jitterFunc == nil {
			jitterFunc = rand.Float64
		}

		// Map [0,1) to [-1,1): jitter=0.1, random=0.7 => delay * 1.04
		randomOffset := (jitterFunc() - 0.5) * 2.0
		delay *= 1.0 + (b.jitter * randomOffset)
	}

	return time.Duration(delay)
}

// MaxAttempts returns the maximum number of attempts.
func (b *ExponentialBackoff) MaxAttempts() int {
	return b.maxAttempts
}

// InitialDelay returns the initial delay for tests and debugging.
func (b *ExponentialBackoff) InitialDelay() time.Duration {
	return b.initialDelay
}

// MaxDelay returns the maximum delay for tests and debugging.
func (b *ExponentialBackoff) MaxDelay() time.Duration {
	return b.maxDelay
}

// Multiplier returns the backoff multiplier for tests and debugging.
func (b *ExponentialBackoff) Multiplier() float64 {
	return b.multiplier
}

// Jitter returns the jitter factor for tests and debugging.
func (b *ExponentialBackoff) Jitter() float64 {
	return b.jitter
}

var _ clusterha.BackoffStrategy = (*ExponentialBackoff)(nil)
