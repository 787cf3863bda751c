package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// ErrorKind classifies oracle-facing failures. Only KindRateLimited is
// retryable; everything else is terminal for the batch it occurred in.
// ConnectionError is treated as terminal even though it is arguably
// transient; that mirrors the behavior this pipeline replaces.
type ErrorKind string

const (
	KindRateLimited   ErrorKind = "rate_limited"
	KindAuthFailure   ErrorKind = "auth_failure"
	KindConnection    ErrorKind = "connection_error"
	KindTimeout       ErrorKind = "timeout"
	KindMalformed     ErrorKind = "malformed_response"
	KindMissingResult ErrorKind = "missing_result"
	KindOracle        ErrorKind = "oracle_error"
)

// OracleError wraps an error with its taxonomy kind.
type OracleError struct {
	Kind ErrorKind
	Err  error
}

func (e *OracleError) Error() string {
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

// NewOracleError wraps err with an explicit kind.
func NewOracleError(kind ErrorKind, err error) *OracleError {
	return &OracleError{Kind: kind, Err: err}
}

// Classify returns the taxonomy kind for an error. Errors that don't carry an
// explicit OracleError are classified by network-level inspection; anything
// unrecognized is a generic oracle error.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindOracle
	}

	var oe *OracleError
	if errors.As(err, &oe) {
		return oe.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return KindConnection
	}

	msg := strings.ToLower(err.Error())
	connectionPatterns := []string{
		"connection reset by peer",
		"connection refused",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
	}
	for _, p := range connectionPatterns {
		if strings.Contains(msg, p) {
			return KindConnection
		}
	}
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") {
		return KindTimeout
	}

	return KindOracle
}

// IsRateLimited reports whether the error classifies as a rate limit, the
// only kind the retry policy will re-attempt.
func IsRateLimited(err error) bool {
	return Classify(err) == KindRateLimited
}
