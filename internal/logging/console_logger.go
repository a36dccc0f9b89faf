package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vvka-141/clusterha/pkg/clusterha"
)

// ConsoleLogger writes human-readable log lines to stderr:
//
//	[WARN] retrying operation {"kind": "transient_router", "attempt": 2}
//
// Safe for concurrent use by multiple goroutines.
type ConsoleLogger struct {
	logger *zap.Logger
}

// NewConsoleLogger creates a new ConsoleLogger.
// If verbose is true, Verbose() calls will produce output.
// If verbose is false, Verbose() calls are no-ops.
func NewConsoleLogger(verbose bool) *ConsoleLogger {
	return newConsoleLogger(os.Stderr, verbose)
}

func newConsoleLogger(w io.Writer, verbose bool) *ConsoleLogger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		LevelKey:         "level",
		MessageKey:       "message",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      bracketLevelEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	})

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(w)), level)
	return &ConsoleLogger{logger: zap.New(core)}
}

func bracketLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString("[VERBOSE]")
	default:
		enc.AppendString("[" + level.CapitalString() + "]")
	}
}

// Verbose logs detailed diagnostic information if verbose mode is enabled.
func (l *ConsoleLogger) Verbose(msg string, fields ...clusterha.Field) {
	l.logger.Debug(msg, fields...)
}

// Info logs informational messages about normal operations.
func (l *ConsoleLogger) Info(msg string, fields ...clusterha.Field) {
	l.logger.Info(msg, fields...)
}

// Warn logs recoverable failures.
func (l *ConsoleLogger) Warn(msg string, fields ...clusterha.Field) {
	l.logger.Warn(msg, fields...)
}

// Error logs error messages.
func (l *ConsoleLogger) Error(msg string, fields ...clusterha.Field) {
	l.logger.Error(msg, fields...)
}

var _ clusterha.Logger = (*ConsoleLogger)(nil)
