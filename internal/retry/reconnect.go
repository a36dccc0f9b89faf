package retry

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/vvka-141/clusterha/internal/logging"
	"github.com/vvka-141/clusterha/pkg/clusterha"
)

const reconnectKey = "reconnect"

// ReconnectCoordinator restores a dropped connection on behalf of every
// goroutine sharing it. Concurrent callers collapse onto a single reconnect
// loop and all observe its outcome.
//
// One coordinator belongs to one connection; executors wrapping the same
// connection must share it.
type ReconnectCoordinator struct {
	view     clusterha.ClusterView
	strategy clusterha.BackoffStrategy
	logger   clusterha.Logger
	metrics  *Metrics
	sleep    Sleeper

	// mu is held for the whole reconnect loop.
	mu    sync.Mutex
	group singleflight.Group
}

// ReconnectOption configures a ReconnectCoordinator.
type ReconnectOption func(*ReconnectCoordinator)

// WithReconnectLogger sets the logger for reconnect events.
func WithReconnectLogger(logger clusterha.Logger) ReconnectOption {
	return func(c *ReconnectCoordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithReconnectMetrics sets the collectors reconnect outcomes are recorded in.
func WithReconnectMetrics(m *Metrics) ReconnectOption {
	return func(c *ReconnectCoordinator) {
		c.metrics = m
	}
}

// WithReconnectSleeper replaces the backoff sleep (tests use a recording sleeper).
func WithReconnectSleeper(s Sleeper) ReconnectOption {
	return func(c *ReconnectCoordinator) {
		if s != nil {
			c.sleep = s
		}
	}
}

// NewReconnectCoordinator creates a coordinator for view.
// Panics if view or strategy is nil.
func NewReconnectCoordinator(view clusterha.ClusterView, strategy clusterha.BackoffStrategy, opts ...ReconnectOption) *ReconnectCoordinator {
	if view == nil {
		panic("view cannot be nil")
	}
	if strategy == nil {
		panic("strategy cannot be nil")
	}

	c := &ReconnectCoordinator{
		view:     view,
		strategy: strategy,
		logger:   logging.NewNullLogger(),
		sleep:    SleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reconnect makes sure the connection is usable and reports the resulting
// connection state. If the connection is already alive it returns true
// without reconnecting. Otherwise it retries RawReconnect with exponential
// backoff, starting from the base interval, and returns the last
// reconnect failure once MaxAttempts attempts are used up.
//
// The reconnect loop is not bound to ctx: it keeps running for the other
// callers when one of them gives up. A caller whose ctx ends stops waiting
// and gets ctx.Err().
func (c *ReconnectCoordinator) Reconnect(ctx context.Context) (bool, error) {
	detached := WithActiveRetry(context.WithoutCancel(ctx))

	ch := c.group.DoChan(reconnectKey, func() (any, error) {
		return c.reconnect(detached)
	})

	select {
	case <-ctx.Done():
		return c.view.IsConnected(), ctx.Err()
	case res := <-ch:
		connected, _ := res.Val.(bool)
		return connected, res.Err
	}
}

func (c *ReconnectCoordinator) reconnect(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.view.ProbeLiveness(ctx) {
		c.metrics.recordReconnect(reconnectAlreadyConnected)
		return true, nil
	}

	maxAttempts := c.strategy.MaxAttempts()
	if maxAttempts <= 0 {
		c.metrics.recordReconnect(reconnectSkipped)
		return c.view.IsConnected(), nil
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		delay := c.strategy.NextDelay(attempt)

		fields := []clusterha.Field{
			clusterha.Int("attempt", attempt),
			clusterha.Int("max_attempts", maxAttempts),
			clusterha.Duration("wait", delay),
		}
		if lastErr != nil {
			fields = append(fields, clusterha.Err(lastErr))
		}
		c.logger.Warn("connection unavailable, reconnecting", fields...)

		if err := c.sleep(ctx, delay); err != nil {
			return c.view.IsConnected(), err
		}

		lastErr = c.view.RawReconnect(ctx)
		c.metrics.recordReconnectAttempt(lastErr == nil)
		if lastErr == nil {
			c.logger.Info("auto-reconnect succeeded", clusterha.Int("attempt", attempt))
			c.metrics.recordReconnect(reconnectRecovered)
			return c.view.IsConnected(), nil
		}

		if attempt >= maxAttempts {
			c.logger.Error("auto-reconnect giving up",
				clusterha.Int("attempts", attempt),
				clusterha.Err(lastErr),
			)
			c.metrics.recordReconnect(reconnectGaveUp)
			return c.view.IsConnected(), lastErr
		}
	}
}
