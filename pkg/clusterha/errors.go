package clusterha

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates the initial connection could not be established.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrUnsupportedBackend indicates the requested backend is not known.
	ErrUnsupportedBackend = errors.New("unsupported backend")

	// ErrNilOperation indicates a retry wrapper was invoked without an operation.
	ErrNilOperation = errors.New("operation cannot be nil")
)

// ConnectionFailure reports a network-level failure: the socket was closed,
// timed out, or a reconnect attempt could not reach the cluster.
type ConnectionFailure struct {
	Message string
	Code    int
	Err     error
}

func (e *ConnectionFailure) Error() string {
	return formatFailure(e.Message, e.Code, e.Err)
}

func (e *ConnectionFailure) Unwrap() error { return e.Err }

// AuthenticationFailure reports a failed handshake. Some servers reject
// authentication spuriously during elections, so it is retried like a
// connection failure.
type AuthenticationFailure struct {
	Message string
	Code    int
	Err     error
}

func (e *AuthenticationFailure) Error() string {
	return formatFailure(e.Message, e.Code, e.Err)
}

func (e *AuthenticationFailure) Unwrap() error { return e.Err }

// OperationFailure reports a server-side failure of a command. Result holds the
// server's reply document when one was received.
type OperationFailure struct {
	Message string
	Code    int
	Result  map[string]any
	Err     error
}

func (e *OperationFailure) Error() string {
	return formatFailure(e.Message, e.Code, e.Err)
}

func (e *OperationFailure) Unwrap() error { return e.Err }

// ResultError returns the error text of the reply document, read from the
// "err" field and then "errmsg". Empty when there is no document.
func (e *OperationFailure) ResultError() string {
	if e.Result == nil {
		return ""
	}
	for _, key := range []string{"err", "errmsg"} {
		if s, ok := e.Result[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func formatFailure(message string, code int, cause error) string {
	msg := message
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	if code != 0 {
		return fmt.Sprintf("%s [%d]", msg, code)
	}
	return msg
}

// usageErrorPrefixes are the message prefixes cobra uses for CLI misuse.
var usageErrorPrefixes = []string{
	"unknown flag",
	"unknown shorthand flag",
	"unknown command",
	"accepts ",
	"requires at least",
	"required flag",
	"invalid argument",
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var connErr *ConnectionFailure
	var authErr *AuthenticationFailure
	switch {
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrUnsupportedBackend):
		return ExitConfigError
	case errors.Is(err, ErrConnectionFailed), errors.As(err, &connErr), errors.As(err, &authErr):
		return ExitConnectionError
	}

	errStr := err.Error()
	for _, prefix := range usageErrorPrefixes {
		if strings.HasPrefix(errStr, prefix) {
			return ExitUsageError
		}
	}
	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}
