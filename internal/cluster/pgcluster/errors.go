package pgcluster

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Class 28 - Invalid Authorization Specification
const pgClassInvalidAuthorization = "28"

func isAuthCode(code string) bool {
	return strings.HasPrefix(code, pgClassInvalidAuthorization)
}

// describeConnectError turns a raw pgx connection error into a short
// operator-facing message. The raw error stays available through Unwrap.
func describeConnectError(err error, host string, port uint16) string {
	errStr := strings.ToLower(err.Error())
	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Sprintf("connection refused to %s", addr)
	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "no host"):
		return fmt.Sprintf("cannot resolve host %q", host)
	case strings.Contains(errStr, "password authentication failed"):
		return fmt.Sprintf("password authentication failed at %s", addr)
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return fmt.Sprintf("connection timed out to %s", addr)
	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		return fmt.Sprintf("SSL/TLS connection error to %s", addr)
	case strings.Contains(errStr, "too many connections"):
		return fmt.Sprintf("too many connections to %s", addr)
	case strings.Contains(errStr, "read-write") || strings.Contains(errStr, "target_session_attrs"):
		return fmt.Sprintf("no member of %s accepts writes", addr)
	default:
		return fmt.Sprintf("failed to connect to %s", addr)
	}
}
