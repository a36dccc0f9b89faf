package retry

import (
	"context"
	"sync"
	"time"

	"github.com/vvka-141/clusterha/pkg/clusterha"
)

// fakeView is an in-memory ClusterView. RawReconnect fails while
// failReconnects > 0 (forever when negative) and heals the connection
// otherwise.
type fakeView struct {
	mu sync.Mutex

	alive         bool
	sharded       bool
	maxRetries    int
	retryInterval time.Duration

	failReconnects int
	reconnectErr   error
	rawHook        func(call int)

	primaries  []clusterha.ServerRef
	primaryErr error
	rescanErr  error

	rawReconnects    int
	probes           int
	rescans          int
	invalidations    int
	nextPrimaryCalls int
}

func newFakeView() *fakeView {
	return &fakeView{
		alive:         true,
		maxRetries:    5,
		retryInterval: 500 * time.Millisecond,
		reconnectErr:  &clusterha.ConnectionFailure{Message: "connection refused"},
	}
}

func (v *fakeView) ProbeLiveness(ctx context.Context) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.probes++
	return v.alive
}

func (v *fakeView) RawReconnect(ctx context.Context) error {
	v.mu.Lock()
	v.rawReconnects++
	call := v.rawReconnects
	hook := v.rawHook
	v.mu.Unlock()

	if hook != nil {
		hook(call)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.failReconnects != 0 {
		if v.failReconnects > 0 {
			v.failReconnects--
		}
		return v.reconnectErr
	}
	v.alive = true
	return nil
}

func (v *fakeView) IsConnected() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.alive
}

func (v *fakeView) RescanTopology(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rescans++
	return v.rescanErr
}

func (v *fakeView) IsSharded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sharded
}

func (v *fakeView) NextPrimary(ctx context.Context) (clusterha.ServerRef, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nextPrimaryCalls++
	if v.primaryErr != nil {
		return clusterha.ServerRef{}, v.primaryErr
	}
	if len(v.primaries) == 0 {
		return clusterha.ServerRef{Addr: "primary:5432"}, nil
	}
	ref := v.primaries[0]
	if len(v.primaries) > 1 {
		v.primaries = v.primaries[1:]
	}
	return ref, nil
}

func (v *fakeView) Invalidate() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.invalidations++
	v.alive = false
}

func (v *fakeView) MaxRetryAttempts() int {
	return v.maxRetries
}

func (v *fakeView) RetryInterval() time.Duration {
	return v.retryInterval
}

func (v *fakeView) setDown(failures int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.alive = false
	v.failReconnects = failures
}

func (v *fakeView) counts() (raw, rescans, invalidations int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rawReconnects, v.rescans, v.invalidations
}

// recordingSleeper records requested waits without blocking.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

type fakeSession struct {
	inTransaction bool
}

func (s fakeSession) InTransaction() bool {
	return s.inTransaction
}
