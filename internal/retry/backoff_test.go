package retry

import (
	"math"
	"testing"
	"time"

	"github.com/vvka-141/clusterha/pkg/clusterha"
)

func TestExponentialBackoff_DefaultValues(t *testing.T) {
	strategy := NewExponentialBackoff(53)

	if strategy.InitialDelay() != 100*time.Millisecond {
		t.Errorf("Expected InitialDelay=100ms, got %v", strategy.InitialDelay())
	}
	if strategy.MaxDelay() != 5*time.Second {
		t.Errorf("Expected MaxDelay=5s, got %v", strategy.MaxDelay())
	}
	if strategy.Multiplier() != 2.0 {
		t.Errorf("Expected Multiplier=2.0, got %v", strategy.Multiplier())
	}
	if strategy.Jitter() != 0 {
		t.Errorf("Expected Jitter=0, got %v", strategy.Jitter())
	}
	if strategy.MaxAttempts() != 53 {
		t.Errorf("Expected MaxAttempts=53, got %v", strategy.MaxAttempts())
	}
}

func TestExponentialBackoff_NextDelay_Sequence(t *testing.T) {
	strategy := NewExponentialBackoff(10)

	tests := []struct {
		attempt       int
		expectedDelay time.Duration
	}{
		{attempt: 1, expectedDelay: 100 * time.Millisecond},
		{attempt: 2, expectedDelay: 200 * time.Millisecond},
		{attempt: 3, expectedDelay: 400 * time.Millisecond},
		{attempt: 4, expectedDelay: 800 * time.Millisecond},
		{attempt: 5, expectedDelay: 1600 * time.Millisecond},
		{attempt: 6, expectedDelay: 3200 * time.Millisecond},
		{attempt: 7, expectedDelay: 5 * time.Second}, // capped
		{attempt: 53, expectedDelay: 5 * time.Second},
	}

	for _, tt := range tests {
		delay := strategy.NextDelay(tt.attempt)
		if delay != tt.expectedDelay {
			t.Errorf("NextDelay(%d) = %v, want %v", tt.attempt, delay, tt.expectedDelay)
		}
	}
}

func TestExponentialBackoff_NextDelay_ZeroAttemptUsesBase(t *testing.T) {
	strategy := NewExponentialBackoff(3)

	if got := strategy.NextDelay(0); got != 100*time.Millisecond {
		t.Errorf("NextDelay(0) = %v, want base interval", got)
	}
	if got := strategy.NextDelay(-4); got != 100*time.Millisecond {
		t.Errorf("NextDelay(-4) = %v, want base interval", got)
	}
}

// TestExponentialBackoff_MatchesClosedForm checks min(base * multiplier^(n-1), max)
// for every attempt up to maxAttempts across several configurations.
func TestExponentialBackoff_MatchesClosedForm(t *testing.T) {
	configs := []clusterha.RetryConfig{
		clusterha.DefaultRetryConfig(),
		{MaxAttempts: 20, BaseInterval: 250 * time.Millisecond, Multiplier: 1.5, MaxInterval: 30 * time.Second},
		{MaxAttempts: 8, BaseInterval: time.Second, Multiplier: 3, MaxInterval: time.Minute},
		{MaxAttempts: 5, BaseInterval: 50 * time.Millisecond, Multiplier: 1, MaxInterval: 50 * time.Millisecond},
	}

	for _, cfg := range configs {
		strategy := NewBackoffFromConfig(cfg)
		for n := 1; n <= cfg.MaxAttempts; n++ {
			want := math.Min(
				float64(cfg.BaseInterval)*math.Pow(cfg.Multiplier, float64(n-1)),
				float64(cfg.MaxInterval),
			)
			got := strategy.NextDelay(n)
			if got != time.Duration(want) {
				t.Errorf("config %+v: NextDelay(%d) = %v, want %v", cfg, n, got, time.Duration(want))
			}
		}
	}
}

func TestExponentialBackoff_NextDelay_MaxDelayCap(t *testing.T) {
	strategy := NewExponentialBackoff(50,
		WithInitialDelay(1*time.Second),
		WithMultiplier(3.0), // Aggressive multiplier
		WithMaxDelay(1*time.Minute),
	)

	// Attempt 11: 1s * 3^10 = 59,049 seconds (~16 hours)
	if delay := strategy.NextDelay(11); delay != 1*time.Minute {
		t.Errorf("Expected delay capped at 1 minute, got %v", delay)
	}

	for attempt := 1; attempt <= 2000; attempt++ {
		if delay := strategy.NextDelay(attempt); delay > 1*time.Minute {
			t.Errorf("Attempt %d: delay %v exceeds 1 minute cap", attempt, delay)
		}
	}
}

func TestExponentialBackoff_NextDelay_WithJitter(t *testing.T) {
	jitterValues := []float64{0.0, 0.5, 1.0}
	delays := make([]time.Duration, len(jitterValues))

	for i, jv := range jitterValues {
		strategy := NewExponentialBackoff(3,
			WithInitialDelay(100*time.Millisecond),
			WithJitter(0.1),
			WithJitterFunc(func() float64 { return jv }), // Deterministic jitter
		)
		delays[i] = strategy.NextDelay(1)
	}

	// jv=0.0 => factor 0.9, jv=0.5 => 1.0, jv=1.0 => 1.1
	if delays[0] != 90*time.Millisecond {
		t.Errorf("NextDelay with jv=0.0 = %v, want 90ms", delays[0])
	}
	if delays[1] != 100*time.Millisecond {
		t.Errorf("NextDelay with jv=0.5 = %v, want 100ms", delays[1])
	}
	if delays[2] != 110*time.Millisecond {
		t.Errorf("NextDelay with jv=1.0 = %v, want 110ms", delays[2])
	}
}

func TestNewBackoffFromConfig(t *testing.T) {
	cfg := clusterha.RetryConfig{
		MaxAttempts:  7,
		BaseInterval: 50 * time.Millisecond,
		Multiplier:   3.0,
		MaxInterval:  5 * time.Second,
		Jitter:       0.2,
	}

	strategy := NewBackoffFromConfig(cfg)

	if strategy.InitialDelay() != 50*time.Millisecond {
		t.Errorf("InitialDelay incorrect: %v", strategy.InitialDelay())
	}
	if strategy.MaxDelay() != 5*time.Second {
		t.Errorf("MaxDelay incorrect: %v", strategy.MaxDelay())
	}
	if strategy.Multiplier() != 3.0 {
		t.Errorf("Multiplier incorrect: %v", strategy.Multiplier())
	}
	if strategy.Jitter() != 0.2 {
		t.Errorf("Jitter incorrect: %v", strategy.Jitter())
	}
	if strategy.MaxAttempts() != 7 {
		t.Errorf("MaxAttempts incorrect: %v", strategy.MaxAttempts())
	}
}

func TestExponentialBackoff_TotalReconnectTime(t *testing.T) {
	strategy := NewExponentialBackoff(3)

	total := time.Duration(0)
	for attempt := 1; attempt <= strategy.MaxAttempts(); attempt++ {
		total += strategy.NextDelay(attempt)
	}

	// 100ms + 200ms + 400ms
	if total != 700*time.Millisecond {
		t.Errorf("Expected total delay 700ms, got %v", total)
	}
}
