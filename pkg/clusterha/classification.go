package clusterha

// Classification is the retry taxonomy a failure maps to.
// It is derived per failure, never stored.
type Classification int

const (
	// Fatal failures are returned to the caller unchanged.
	Fatal Classification = iota

	// TransientConnection covers socket-level failures: closed sockets,
	// timeouts, authentication hiccups. Recovered by reconnecting.
	TransientConnection

	// TransientRouter covers failures a sharded router reports when it lost
	// connectivity to a shard. Recovered by retrying the same operation.
	TransientRouter

	// ReplicaFailover means the member we talked to is no longer primary.
	// The connection is invalidated and the topology re-resolved.
	ReplicaFailover

	// WriteRetryable covers the no-primary class of failures that are safe
	// to replay for single writes outside a transaction.
	WriteRetryable
)

// String returns the log representation of the classification.
func (c Classification) String() string {
	switch c {
	case TransientConnection:
		return "transient_connection"
	case TransientRouter:
		return "transient_router"
	case ReplicaFailover:
		return "replica_failover"
	case WriteRetryable:
		return "write_retryable"
	default:
		return "fatal"
	}
}

// Retryable reports whether the classification is ever eligible for retry.
func (c Classification) Retryable() bool {
	return c != Fatal
}
