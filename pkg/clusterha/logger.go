package clusterha

import "go.uber.org/zap"

// Field is a structured log field.
type Field = zap.Field

// Field constructors.
var (
	String   = zap.String
	Int      = zap.Int
	Bool     = zap.Bool
	Err      = zap.Error
	Duration = zap.Duration
	Any      = zap.Any
)

// Logger provides pluggable structured logging.
// Implementations must be safe for concurrent use by multiple goroutines.
type Logger interface {
	// Verbose logs detailed diagnostic information.
	// Only emitted when verbose output is enabled.
	Verbose(msg string, fields ...Field)

	// Info logs informational messages about normal operations.
	Info(msg string, fields ...Field)

	// Warn logs recoverable failures such as retries and reconnect attempts.
	Warn(msg string, fields ...Field)

	// Error logs failures that are about to be returned to the caller.
	Error(msg string, fields ...Field)
}
