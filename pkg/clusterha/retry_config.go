package clusterha

import (
	"fmt"
	"math"
	"time"
)

// RetryConfig holds the reconnect backoff settings of one connection.
// It is supplied at connection setup and not modified afterwards.
type RetryConfig struct {
	// MaxAttempts is the number of raw reconnect attempts (0 = only probe).
	MaxAttempts int

	// BaseInterval is the wait before the first reconnect attempt.
	BaseInterval time.Duration

	// Multiplier grows the wait after each failed attempt.
	Multiplier float64

	// MaxInterval caps the wait between attempts.
	MaxInterval time.Duration

	// Jitter randomises each wait by +/- Jitter (0.0-1.0). Zero keeps the
	// sequence deterministic.
	Jitter float64
}

// DefaultRetryConfig returns the documented reconnect defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultReconnectAttempts,
		BaseInterval: DefaultReconnectRetryInterval,
		Multiplier:   DefaultReconnectRetryMultiplier,
		MaxInterval:  DefaultReconnectMaxRetryInterval,
	}
}

// Validate checks the invariants of the configuration.
func (c RetryConfig) Validate() error {
	switch {
	case c.MaxAttempts < 0:
		return fmt.Errorf("reconnect attempts must be >= 0, got %d: %w", c.MaxAttempts, ErrInvalidConfig)
	case c.BaseInterval <= 0:
		return fmt.Errorf("reconnect retry interval must be positive, got %v: %w", c.BaseInterval, ErrInvalidConfig)
	case math.IsNaN(c.Multiplier) || math.IsInf(c.Multiplier, 0) || c.Multiplier < 1:
		return fmt.Errorf("reconnect retry multiplier must be >= 1, got %v: %w", c.Multiplier, ErrInvalidConfig)
	case c.MaxInterval < c.BaseInterval:
		return fmt.Errorf("reconnect max retry interval %v is below the base interval %v: %w",
			c.MaxInterval, c.BaseInterval, ErrInvalidConfig)
	case math.IsNaN(c.Jitter) || c.Jitter < 0 || c.Jitter > 1:
		return fmt.Errorf("reconnect jitter must be within [0, 1], got %v: %w", c.Jitter, ErrInvalidConfig)
	}
	return nil
}
