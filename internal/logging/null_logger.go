package logging

import "github.com/vvka-141/clusterha/pkg/clusterha"

// NullLogger is a no-op logger that discards all log messages.
// Safe for concurrent use by multiple goroutines.
// Useful for testing and when logging is not desired.
type NullLogger struct{}

// NewNullLogger creates a new NullLogger.
func NewNullLogger() *NullLogger {
	return &NullLogger{}
}

// Verbose is a no-op.
func (l *NullLogger) Verbose(msg string, fields ...clusterha.Field) {}

// Info is a no-op.
func (l *NullLogger) Info(msg string, fields ...clusterha.Field) {}

// Warn is a no-op.
func (l *NullLogger) Warn(msg string, fields ...clusterha.Field) {}

// Error is a no-op.
func (l *NullLogger) Error(msg string, fields ...clusterha.Field) {}

var _ clusterha.Logger = (*NullLogger)(nil)
