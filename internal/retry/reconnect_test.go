package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vvka-141/clusterha/internal/logging"
)

func newTestCoordinator(view *fakeView, maxAttempts int, sleeper *recordingSleeper, opts ...ReconnectOption) *ReconnectCoordinator {
	strategy := NewExponentialBackoff(maxAttempts)
	opts = append([]ReconnectOption{WithReconnectSleeper(sleeper.Sleep)}, opts...)
	return NewReconnectCoordinator(view, strategy, opts...)
}

func TestReconnect_AlreadyAlive(t *testing.T) {
	view := newFakeView()
	sleeper := &recordingSleeper{}
	c := newTestCoordinator(view, 3, sleeper)

	connected, err := c.Reconnect(context.Background())

	require.NoError(t, err)
	assert.True(t, connected)
	raw, _, _ := view.counts()
	assert.Equal(t, 0, raw)
	assert.Empty(t, sleeper.Delays())
}

func TestReconnect_ZeroAttemptsOnlyProbes(t *testing.T) {
	view := newFakeView()
	view.setDown(-1)
	sleeper := &recordingSleeper{}
	c := newTestCoordinator(view, 0, sleeper)

	connected, err := c.Reconnect(context.Background())

	require.NoError(t, err)
	assert.False(t, connected)
	raw, _, _ := view.counts()
	assert.Equal(t, 0, raw)
	assert.Empty(t, sleeper.Delays())
}

func TestReconnect_NeverHealsGivesUpAfterMaxAttempts(t *testing.T) {
	view := newFakeView()
	view.setDown(-1)
	sleeper := &recordingSleeper{}
	core, logs := observer.New(zapcore.DebugLevel)
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	c := newTestCoordinator(view, 3, sleeper,
		WithReconnectLogger(logging.NewZapLoggerFrom(zap.New(core))),
		WithReconnectMetrics(metrics),
	)

	connected, err := c.Reconnect(context.Background())

	assert.False(t, connected)
	assert.Same(t, view.reconnectErr, err, "the last reconnect failure must be returned unchanged")
	raw, _, _ := view.counts()
	assert.Equal(t, 3, raw)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}, sleeper.Delays())

	assert.Equal(t, 3, logs.FilterMessage("connection unavailable, reconnecting").FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, 1, logs.FilterMessage("auto-reconnect giving up").FilterLevelExact(zapcore.ErrorLevel).Len())

	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.reconnectAttempts.WithLabelValues("failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.reconnects.WithLabelValues(reconnectGaveUp)))
}

func TestReconnect_HealsMidLoop(t *testing.T) {
	view := newFakeView()
	view.setDown(1)
	sleeper := &recordingSleeper{}
	metrics := NewMetrics(prometheus.NewRegistry())
	c := newTestCoordinator(view, 5, sleeper, WithReconnectMetrics(metrics))

	connected, err := c.Reconnect(context.Background())

	require.NoError(t, err)
	assert.True(t, connected)
	raw, _, _ := view.counts()
	assert.Equal(t, 2, raw)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, sleeper.Delays())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.reconnectAttempts.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.reconnects.WithLabelValues(reconnectRecovered)))
}

func TestReconnect_BackoffRestartsPerCall(t *testing.T) {
	view := newFakeView()
	sleeper := &recordingSleeper{}
	c := newTestCoordinator(view, 5, sleeper)

	view.setDown(1)
	_, err := c.Reconnect(context.Background())
	require.NoError(t, err)

	view.setDown(1)
	_, err = c.Reconnect(context.Background())
	require.NoError(t, err)

	want := []time.Duration{
		100 * time.Millisecond, 200 * time.Millisecond,
		100 * time.Millisecond, 200 * time.Millisecond,
	}
	assert.Equal(t, want, sleeper.Delays())
}

func TestReconnect_ConcurrentCallersShareOneReconnect(t *testing.T) {
	view := newFakeView()
	view.setDown(0)
	gate := make(chan struct{})
	view.rawHook = func(int) { <-gate }
	sleeper := &recordingSleeper{}
	c := newTestCoordinator(view, 53, sleeper)

	const callers = 20
	results := make([]bool, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Reconnect(context.Background())
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	raw, _, _ := view.counts()
	assert.Equal(t, 1, raw, "concurrent callers must collapse onto one reconnect")
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Errorf("caller %d: unexpected error %v", i, errs[i])
		}
		if !results[i] {
			t.Errorf("caller %d: expected connected", i)
		}
	}
}

func TestReconnect_CallerContextCancelled(t *testing.T) {
	view := newFakeView()
	view.setDown(0)
	started := make(chan struct{})
	gate := make(chan struct{})
	var once sync.Once
	view.rawHook = func(int) {
		once.Do(func() { close(started) })
		<-gate
	}
	c := newTestCoordinator(view, 3, &recordingSleeper{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Reconnect(ctx)
		done <- err
	}()

	<-started
	cancel()
	err := <-done
	assert.True(t, errors.Is(err, context.Canceled), "expected context.Canceled, got %v", err)

	close(gate)
	connected, err := c.Reconnect(context.Background())
	require.NoError(t, err)
	assert.True(t, connected)
	raw, _, _ := view.counts()
	assert.Equal(t, 1, raw)
}

func TestNewReconnectCoordinator_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { NewReconnectCoordinator(nil, NewExponentialBackoff(1)) })
	assert.Panics(t, func() { NewReconnectCoordinator(newFakeView(), nil) })
}
