package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/clusterha/pkg/clusterha"
)

// Messages a sharded router returns when it loses connectivity to a shard.
// The list was accumulated from production incidents; add new ones as they
// are discovered. Matching is case-sensitive.
//
//	9001: socket exception
//	DBClientBase::findOne: transport error
//	: db assertion failure
//	8002: 8002 all servers down!
//	10009: ReplicaSetMonitor no master found for set: mdbb
var defaultRouterPhrases = []string{
	"socket exception",
	"Connection reset by peer",
	"transport error",
	"db assertion failure",
	"8002",
	"stream closed",
	"Bad file descriptor",
	"Failed to connect",
	"10009",
	"no master found",
	"not master",
	"Timed out waiting on socket",
	"didn't get writeback",
	"interrupted at shutdown",
	"can't connect",
	"connect failed",
	"error querying",
	"could not get last error",
	"connection attempt failed",
	"unknown replica set",
	"dbclient error communicating with server",
}

// Messages that mean no primary was reachable. Safe to replay for writes.
var defaultWriteRetryablePhrases = []string{
	"no master",
	"not master",
	"could not contact primary",
	"Not primary",
}

// Phrases in a reply document that mean the member stepped down.
var defaultFailoverResultPhrases = []string{
	"not master",
	"not primary",
	"Not primary",
}

// Messages of unstructured errors that mean the socket is gone.
var connectionMessagePatterns = []string{
	"connection refused",
	"broken pipe",
	"server closed the connection",
	"use of closed network connection",
	"unexpected eof",
	"i/o timeout",
}

// PostgreSQL error codes with a non-fatal classification.
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	// Class 08 - Connection Exception
	pgClassConnectionException = "08"

	// Class 25 - Invalid Transaction State: we reached a standby
	pgCodeReadOnlySQLTransaction = "25006"

	// Class 40 - Transaction Rollback
	pgCodeSerializationFailure = "40001"
	pgCodeDeadlockDetected     = "40P01"

	// Class 53 - Insufficient Resources
	pgClassInsufficientResources = "53"

	// Class 55 - Object Not In Prerequisite State
	pgCodeLockNotAvailable = "55P03"

	// Class 57 - Operator Intervention
	pgCodeAdminShutdown    = "57P01"
	pgCodeCrashShutdown    = "57P02"
	pgCodeCannotConnectNow = "57P03"
)

// Classifier maps failures onto the retry taxonomy using the error type and
// message substrings. Unmatched errors are Fatal.
//
// Classify is a pure function of the error; side effects such as invalidating
// the connection on ReplicaFailover are left to the Executor.
type Classifier struct {
	routerPhrases          []string
	writeRetryablePhrases  []string
	failoverResultPhrases  []string
	failoverMessagePhrases []string
	connectionPhrases      []string
}

// ClassifierOption is a functional option for configuring Classifier.
type ClassifierOption func(*Classifier)

// WithRouterPhrases adds message substrings classified as TransientRouter.
func WithRouterPhrases(phrases ...string) ClassifierOption {
	return func(c *Classifier) {
		c.routerPhrases = append(c.routerPhrases, phrases...)
	}
}

// WithWriteRetryablePhrases adds message substrings classified as WriteRetryable.
func WithWriteRetryablePhrases(phrases ...string) ClassifierOption {
	return func(c *Classifier) {
		c.writeRetryablePhrases = append(c.writeRetryablePhrases, phrases...)
	}
}

// WithFailoverPhrases adds message substrings that mean the member we talked
// to is no longer primary, for backends without structured reply documents.
func WithFailoverPhrases(phrases ...string) ClassifierOption {
	return func(c *Classifier) {
		c.failoverMessagePhrases = append(c.failoverMessagePhrases, phrases...)
	}
}

// WithConnectionPhrases adds message substrings classified as TransientConnection.
func WithConnectionPhrases(phrases ...string) ClassifierOption {
	return func(c *Classifier) {
		c.connectionPhrases = append(c.connectionPhrases, phrases...)
	}
}

// NewClassifier creates a classifier with the built-in phrase tables.
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		routerPhrases:         append([]string(nil), defaultRouterPhrases...),
		writeRetryablePhrases: append([]string(nil), defaultWriteRetryablePhrases...),
		failoverResultPhrases: append([]string(nil), defaultFailoverResultPhrases...),
		connectionPhrases:     append([]string(nil), connectionMessagePatterns...),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Classify returns the classification of err. Rules apply in order:
// network failures, a stepped-down primary, router failures, the
// write-retryable subset, and finally Fatal.
func (c *Classifier) Classify(err error) clusterha.Classification {
	if err == nil {
		return clusterha.Fatal
	}

	// The caller's own deadline or cancellation is never retried.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return clusterha.Fatal
	}

	if c.isConnectionFailure(err) {
		return clusterha.TransientConnection
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifyPgError(pgErr)
	}

	var opErr *clusterha.OperationFailure
	if errors.As(err, &opErr) && containsAny(opErr.ResultError(), c.failoverResultPhrases) {
		return clusterha.ReplicaFailover
	}

	msg := failureMessage(err)

	if containsAny(msg, c.failoverMessagePhrases) {
		return clusterha.ReplicaFailover
	}

	if strings.TrimSpace(msg) == ":" || containsAny(msg, c.routerPhrases) {
		return clusterha.TransientRouter
	}

	if containsAny(msg, c.writeRetryablePhrases) {
		return clusterha.WriteRetryable
	}

	return clusterha.Fatal
}

// IsWriteRetryable reports whether err carries one of the write-retryable
// messages. Some of them are also router messages ("not master"), which
// Classify reports as TransientRouter.
func (c *Classifier) IsWriteRetryable(err error) bool {
	if err == nil {
		return false
	}
	return containsAny(failureMessage(err), c.writeRetryablePhrases)
}

// isConnectionFailure checks for socket-level failures.
func (c *Classifier) isConnectionFailure(err error) bool {
	var connErr *clusterha.ConnectionFailure
	if errors.As(err, &connErr) {
		return true
	}

	var authErr *clusterha.AuthenticationFailure
	if errors.As(err, &authErr) {
		return true
	}

	var pgConnectErr *pgconn.ConnectError
	if errors.As(err, &pgConnectErr) {
		return true
	}

	if errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		// Only temporary DNS failures heal by themselves
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if pgconn.Timeout(err) {
		return true
	}

	// Server replies never count as socket failures even when their text
	// mentions a connection; the router table decides those.
	var opFailure *clusterha.OperationFailure
	if errors.As(err, &opFailure) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return false
	}

	return containsAny(strings.ToLower(err.Error()), c.connectionPhrases)
}

// classifyPgError maps PostgreSQL SQLSTATE codes onto the taxonomy.
func classifyPgError(pgErr *pgconn.PgError) clusterha.Classification {
	code := pgErr.Code

	switch {
	case strings.HasPrefix(code, pgClassConnectionException):
		return clusterha.TransientConnection
	case strings.HasPrefix(code, pgClassInsufficientResources):
		return clusterha.TransientRouter
	}

	switch code {
	case pgCodeAdminShutdown, pgCodeCrashShutdown, pgCodeCannotConnectNow:
		return clusterha.TransientConnection
	case pgCodeReadOnlySQLTransaction:
		return clusterha.ReplicaFailover
	case pgCodeSerializationFailure, pgCodeDeadlockDetected, pgCodeLockNotAvailable:
		return clusterha.WriteRetryable
	}

	return clusterha.Fatal
}

// failureMessage returns the server message of an OperationFailure, or the
// error text for anything else.
func failureMessage(err error) string {
	var opErr *clusterha.OperationFailure
	if errors.As(err, &opErr) {
		if opErr.Message != "" {
			return opErr.Message
		}
		if opErr.Err != nil {
			return opErr.Err.Error()
		}
	}
	return err.Error()
}

func containsAny(s string, phrases []string) bool {
	if s == "" {
		return false
	}
	for _, phrase := range phrases {
		if phrase != "" && strings.Contains(s, phrase) {
			return true
		}
	}
	return false
}

var _ clusterha.ErrorClassifier = (*Classifier)(nil)
