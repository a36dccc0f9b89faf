package clusterha

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Operation completed successfully
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration or options
	ExitConnectionError = 11 // Failed to connect to the cluster
)

const (
	// DefaultReconnectAttempts is the default number of raw reconnect attempts
	// made by a single reconnect before giving up.
	DefaultReconnectAttempts = 53

	// DefaultReconnectRetryInterval is the wait before the first reconnect attempt.
	DefaultReconnectRetryInterval = 100 * time.Millisecond

	// DefaultReconnectRetryMultiplier grows the wait between reconnect attempts.
	DefaultReconnectRetryMultiplier = 2.0

	// DefaultReconnectMaxRetryInterval caps the wait between reconnect attempts.
	DefaultReconnectMaxRetryInterval = 5 * time.Second

	// DefaultMaxRetryAttempts bounds read/write retry loops.
	DefaultMaxRetryAttempts = 60

	// DefaultRetryInterval is the pause between retries against a sharded router.
	DefaultRetryInterval = 500 * time.Millisecond

	// DefaultRouterRetryLimit bounds router retries of the legacy write path.
	DefaultRouterRetryLimit = 60
)
