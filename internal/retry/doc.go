// Package retry keeps read and write operations working across transient
// cluster failures.
//
// The Classifier labels each failure, the Executor picks the recovery step
// for that label (reconnect, topology rescan or a pause before the next try),
// and the ReconnectCoordinator collapses concurrent reconnects on one
// connection into a single backoff loop.
//
// Usage:
//
//	executor, err := retry.NewExecutor(view, cfg,
//	    retry.WithLogger(logger),
//	    retry.WithMetrics(retry.NewMetrics(prometheus.DefaultRegisterer)),
//	)
//	if err != nil {
//	    return err
//	}
//	err = executor.Write(ctx, session, func(ctx context.Context) error {
//	    _, err := conn.Exec(ctx, "UPDATE accounts SET balance = balance - 10 WHERE id = $1", id)
//	    return err
//	})
//
// Writes outside a transaction may be applied twice when a failure hides a
// successful execution. Callers needing exactly-once effects must supply an
// idempotency key of their own.
package retry
