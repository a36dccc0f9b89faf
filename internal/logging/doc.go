// Package logging provides concrete implementations of the clusterha.Logger interface.
//
// Available implementations:
//   - ZapLogger: Structured JSON or console output built on zap
//   - ConsoleLogger: Human-readable output on stderr with a verbose switch
//   - NullLogger: Discards all messages (useful for testing)
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
