package clusterha

import (
	"context"
	"time"
)

// ServerRef identifies a single cluster member, typically the current primary.
// The zero value means "no preference, resolve the topology again".
type ServerRef struct {
	// Addr is the host:port of the member.
	Addr string
}

// IsZero reports whether the reference carries no address.
func (s ServerRef) IsZero() bool {
	return s.Addr == ""
}

// String returns the member address.
func (s ServerRef) String() string {
	return s.Addr
}

// Session is the caller's logical session. Writes issued while the session is
// inside a multi-statement transaction are never replayed.
type Session interface {
	InTransaction() bool
}

// ClusterView is the connection and topology collaborator the retry layer
// drives. Implementations own the wire protocol, pooling and topology
// discovery; the retry layer only calls into them.
//
// Implementations must be safe for concurrent use.
type ClusterView interface {
	// ProbeLiveness performs a cheap round trip and reports whether the
	// connection is usable.
	ProbeLiveness(ctx context.Context) bool

	// RawReconnect re-establishes the underlying connection once.
	// Failures should be returned as *ConnectionFailure.
	RawReconnect(ctx context.Context) error

	// IsConnected reports the last known connection state without I/O.
	IsConnected() bool

	// RescanTopology forces re-discovery of the cluster members.
	RescanTopology(ctx context.Context) error

	// IsSharded reports whether the client talks to a sharded router tier.
	IsSharded() bool

	// NextPrimary resolves the member currently accepting writes.
	NextPrimary(ctx context.Context) (ServerRef, error)

	// Invalidate marks the current connection closed so it is not reused.
	// Called when a member reports it lost primary status.
	Invalidate()

	// MaxRetryAttempts bounds read/write retry loops.
	MaxRetryAttempts() int

	// RetryInterval is the pause between retries against a sharded router.
	RetryInterval() time.Duration
}
