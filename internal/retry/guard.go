package retry

import "context"

type activeRetryKey struct{}

// WithActiveRetry marks ctx as running inside a retry wrapper. Wrapped calls
// that receive such a context execute once instead of installing a second
// retry loop.
func WithActiveRetry(ctx context.Context) context.Context {
	if InRetry(ctx) {
		return ctx
	}
	return context.WithValue(ctx, activeRetryKey{}, true)
}

// InRetry reports whether ctx belongs to an active retry loop.
func InRetry(ctx context.Context) bool {
	active, _ := ctx.Value(activeRetryKey{}).(bool)
	return active
}
