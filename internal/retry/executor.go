package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vvka-141/clusterha/internal/logging"
	"github.com/vvka-141/clusterha/pkg/clusterha"
)

const tracerName = "github.com/vvka-141/clusterha/internal/retry"

// Retry policies.
const (
	PolicyRead        = "read"
	PolicyWrite       = "write"
	PolicyLegacyWrite = "legacy_write"
)

// Executor runs read and write operations against a cluster connection and
// retries them across transient failures.
//
// Thread Safety:
// The Executor is safe for concurrent use. WithOnRetry() returns a NEW
// instance that shares the connection and its ReconnectCoordinator.
type Executor struct {
	view        clusterha.ClusterView
	classifier  clusterha.ErrorClassifier
	reconnector *ReconnectCoordinator
	logger      clusterha.Logger
	metrics     *Metrics
	tracer      trace.Tracer
	sleep       Sleeper

	routerRetryLimit    int
	routerRetryInterval time.Duration

	onRetry func(attempt int, kind clusterha.Classification, err error)
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithClassifier replaces the default Classifier.
func WithClassifier(c clusterha.ErrorClassifier) ExecutorOption {
	return func(e *Executor) {
		if c != nil {
			e.classifier = c
		}
	}
}

// WithLogger sets the logger for retry and reconnect events.
func WithLogger(logger clusterha.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the collectors retries and reconnects are recorded in.
func WithMetrics(m *Metrics) ExecutorOption {
	return func(e *Executor) {
		e.metrics = m
	}
}

// WithTracer sets the tracer used for one span per logical call.
func WithTracer(tracer trace.Tracer) ExecutorOption {
	return func(e *Executor) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithSleeper replaces the sleep used between retries and reconnects.
func WithSleeper(s Sleeper) ExecutorOption {
	return func(e *Executor) {
		if s != nil {
			e.sleep = s
		}
	}
}

// WithRouterRetryLimit bounds router retries of LegacyWrite and sets the
// pause between them.
func WithRouterRetryLimit(limit int, interval time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.routerRetryLimit = limit
		e.routerRetryInterval = interval
	}
}

// WithReconnectCoordinator makes the executor use an existing coordinator,
// so several executors on the same connection share one reconnect lock.
func WithReconnectCoordinator(c *ReconnectCoordinator) ExecutorOption {
	return func(e *Executor) {
		e.reconnector = c
	}
}

// NewExecutor creates an executor for view. cfg drives reconnect backoff;
// read and write retries are bounded by view.MaxRetryAttempts().
func NewExecutor(view clusterha.ClusterView, cfg clusterha.RetryConfig, opts ...ExecutorOption) (*Executor, error) {
	if view == nil {
		return nil, fmt.Errorf("cluster view is required: %w", clusterha.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Executor{
		view:                view,
		classifier:          NewClassifier(),
		logger:              logging.NewNullLogger(),
		tracer:              otel.Tracer(tracerName),
		sleep:               SleepContext,
		routerRetryLimit:    clusterha.DefaultRouterRetryLimit,
		routerRetryInterval: clusterha.DefaultRetryInterval,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.reconnector == nil {
		e.reconnector = NewReconnectCoordinator(view, NewBackoffFromConfig(cfg),
			WithReconnectLogger(e.logger),
			WithReconnectMetrics(e.metrics),
			WithReconnectSleeper(e.sleep),
		)
	}
	return e, nil
}

// WithOnRetry returns a new Executor with the specified retry callback.
// The callback runs before the recovery step of each retry.
//
// This method does NOT modify the receiver; it returns a new instance.
func (e *Executor) WithOnRetry(callback func(attempt int, kind clusterha.Classification, err error)) *Executor {
	clone := *e
	clone.onRetry = callback
	return &clone
}

// Reconnector returns the coordinator restoring the connection.
func (e *Executor) Reconnector() *ReconnectCoordinator {
	return e.reconnector
}

// Read runs a read operation. Reads are always safe to replay, so every
// non-fatal failure is retried until view.MaxRetryAttempts() retries are
// used up. The last failure is returned unchanged.
func (e *Executor) Read(ctx context.Context, op func(ctx context.Context) error) error {
	return e.run(ctx, PolicyRead, nil, op)
}

// Write runs a write operation. Only failures that mean the write never
// reached a primary are replayed: dropped connections, a stepped-down
// primary and the write-retryable messages. Other router failures are
// returned on the first attempt, and a session inside a multi-statement
// transaction disables retries entirely.
//
// A retried write may be applied twice when the failure hid a successful
// execution; callers needing exactly-once effects supply an idempotency key.
func (e *Executor) Write(ctx context.Context, session clusterha.Session, op func(ctx context.Context) error) error {
	return e.run(ctx, PolicyWrite, session, op)
}

// LegacyWrite runs a single-server write. The operation is invoked with server,
// or with a freshly resolved primary when server is zero. After a failure the
// target is dropped so the next attempt resolves the primary again.
// Connection failures are retried once; router failures up to the router
// retry limit.
func (e *Executor) LegacyWrite(
	ctx context.Context,
	server clusterha.ServerRef,
	session clusterha.Session,
	op func(ctx context.Context, server clusterha.ServerRef) error,
) error {
	if op == nil {
		return clusterha.ErrNilOperation
	}

	target := server
	return e.run(ctx, PolicyLegacyWrite, session, func(ctx context.Context) error {
		if target.IsZero() {
			primary, err := e.view.NextPrimary(ctx)
			if err != nil {
				return err
			}
			target = primary
		}

		err := op(ctx, target)
		if err != nil {
			target = clusterha.ServerRef{}
		}
		return err
	})
}

// ReadValue is Read for operations returning a value.
func ReadValue[T any](ctx context.Context, e *Executor, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	if op == nil {
		return result, clusterha.ErrNilOperation
	}
	err := e.Read(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}

// WriteValue is Write for operations returning a value.
func WriteValue[T any](ctx context.Context, e *Executor, session clusterha.Session, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	if op == nil {
		return result, clusterha.ErrNilOperation
	}
	err := e.Write(ctx, session, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}

// attemptState is the bookkeeping of one logical call.
type attemptState struct {
	policy        string
	opID          string
	count         int
	retriedOnce   bool
	inTransaction bool
}

func (e *Executor) run(ctx context.Context, policy string, session clusterha.Session, op func(ctx context.Context) error) error {
	if op == nil {
		return clusterha.ErrNilOperation
	}

	// Nested wrapped calls run once; the outer loop owns the retries.
	if InRetry(ctx) {
		return op(ctx)
	}
	ctx = WithActiveRetry(ctx)

	state := &attemptState{
		policy:        policy,
		opID:          uuid.NewString(),
		inTransaction: session != nil && session.InTransaction(),
	}

	ctx, span := e.tracer.Start(ctx, "clusterha."+policy, trace.WithAttributes(
		attribute.String("clusterha.policy", policy),
		attribute.String("clusterha.op_id", state.opID),
		attribute.Bool("clusterha.in_transaction", state.inTransaction),
	))
	defer span.End()

	for {
		err := op(ctx)
		if err == nil {
			if state.count > 0 {
				e.metrics.recordRecovery(policy)
				span.SetAttributes(attribute.Int("clusterha.retries", state.count))
			}
			span.SetStatus(codes.Ok, "")
			return nil
		}

		kind := e.classifier.Classify(err)
		if kind == clusterha.ReplicaFailover {
			e.view.Invalidate()
		}

		if !e.shouldRetry(state, kind, err) {
			return e.fail(span, state, kind, err)
		}

		e.logger.Warn("retrying operation",
			clusterha.String("policy", policy),
			clusterha.String("kind", kind.String()),
			clusterha.Err(err),
			clusterha.Int("attempt", state.count),
			clusterha.String("op_id", state.opID),
		)
		e.metrics.recordRetry(policy, kind)
		span.AddEvent("retry", trace.WithAttributes(
			attribute.String("clusterha.kind", kind.String()),
			attribute.Int("clusterha.attempt", state.count),
			attribute.String("error", err.Error()),
		))
		if e.onRetry != nil {
			e.onRetry(state.count, kind, err)
		}

		if stop := e.prepareRetry(ctx, state, kind, err); stop != nil {
			return e.fail(span, state, kind, stop)
		}
	}
}

// shouldRetry advances the attempt counter and applies the policy bound.
// Retries happen for attempt counts 1..limit, so an operation runs at most
// limit+1 times.
func (e *Executor) shouldRetry(state *attemptState, kind clusterha.Classification, err error) bool {
	if !kind.Retryable() || state.inTransaction {
		return false
	}
	if state.policy == PolicyWrite && !e.writeRetryable(kind, err) {
		return false
	}

	state.count++

	if state.policy == PolicyLegacyWrite {
		if kind == clusterha.TransientConnection {
			if state.retriedOnce {
				return false
			}
			state.retriedOnce = true
			return true
		}
		return state.count <= e.routerRetryLimit
	}

	return state.count <= e.view.MaxRetryAttempts()
}

// writeRetryable reports whether a write may be replayed after err. Router
// failures are replayed only when they say no primary was reachable.
func (e *Executor) writeRetryable(kind clusterha.Classification, err error) bool {
	switch kind {
	case clusterha.TransientConnection, clusterha.ReplicaFailover, clusterha.WriteRetryable:
		return true
	case clusterha.TransientRouter:
		matcher, ok := e.classifier.(interface{ IsWriteRetryable(error) bool })
		return ok && matcher.IsWriteRetryable(err)
	default:
		return false
	}
}

// prepareRetry prepares the next attempt. A non-nil result ends the call and is
// returned to the caller.
func (e *Executor) prepareRetry(ctx context.Context, state *attemptState, kind clusterha.Classification, cause error) error {
	if kind == clusterha.TransientConnection {
		connected, err := e.reconnector.Reconnect(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			e.logger.Error("reconnect failed, returning original failure",
				clusterha.String("op_id", state.opID),
				clusterha.Err(err),
			)
			return cause
		}
		if !connected {
			e.logger.Verbose("connection still down after reconnect", clusterha.String("op_id", state.opID))
		}
		return nil
	}

	if state.policy == PolicyLegacyWrite {
		return e.sleep(ctx, e.routerRetryInterval)
	}

	if state.policy == PolicyWrite && (kind == clusterha.WriteRetryable || kind == clusterha.TransientRouter) {
		return e.rescan(ctx, state)
	}

	if e.view.IsSharded() {
		return e.sleep(ctx, e.view.RetryInterval())
	}
	return e.rescan(ctx, state)
}

func (e *Executor) rescan(ctx context.Context, state *attemptState) error {
	if err := e.view.RescanTopology(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		e.logger.Warn("topology rescan failed",
			clusterha.String("op_id", state.opID),
			clusterha.Err(err),
		)
	}
	return nil
}

func (e *Executor) fail(span trace.Span, state *attemptState, kind clusterha.Classification, err error) error {
	e.metrics.recordFailure(state.policy, kind)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(
		attribute.String("clusterha.kind", kind.String()),
		attribute.Int("clusterha.retries", state.count),
	)

	if state.count > 0 {
		e.logger.Error("operation failed after retries",
			clusterha.String("policy", state.policy),
			clusterha.String("kind", kind.String()),
			clusterha.Int("attempts", state.count),
			clusterha.String("op_id", state.opID),
			clusterha.Err(err),
		)
	}
	return err
}
