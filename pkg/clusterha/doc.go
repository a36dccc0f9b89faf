// Package clusterha defines the public contract of the cluster resilience layer.
//
// Application code hands read and write operations to a retry executor, which
// keeps them succeeding across transient connectivity failures of a clustered
// database (replica set or sharded router topology). This package holds the
// types shared between the executor and the backends it drives:
//
//   - ClusterView: the connection/topology collaborator a backend implements
//   - RetryConfig: reconnect backoff settings supplied at connection setup
//   - Classification: the failure taxonomy used to pick a retry policy
//   - ConnectionFailure, AuthenticationFailure, OperationFailure: failure types
//     backends may return so the classifier can recognise them
//   - Logger: structured logging interface
//
// Duplicate writes: a retried write cannot tell "failed before executing" from
// "executed but the acknowledgement was lost". Callers that need exactly-once
// semantics must carry an idempotency key in the operation itself.
package clusterha
