package http

import (
	"context"
	"errors"
	"net"
)

// ConfigError means the request can never succeed until an operator fixes
// the configuration (missing credentials, unlinked phone number). The message
// carries remediation guidance and is safe to surface to the API caller.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

// NetworkError means the provider could not be reached at all (DNS, timeout,
// connection refused). Transient; the caller may retry later. This service
// does not retry automatically.
type NetworkError struct {
	Msg string
	Err error
}

func (e *NetworkError) Error() string { return e.Msg }
func (e *NetworkError) Unwrap() error { return e.Err }

// ProviderError is a non-2xx response from the provider that is neither a
// known configuration problem nor a transport failure. The provider's own
// message is passed through.
type ProviderError struct {
	StatusCode int
	Msg        string
}

func (e *ProviderError) Error() string { return e.Msg }

// isNetworkClass reports whether err is a transport-level failure rather
// than an HTTP response from the provider.
func isNetworkClass(err error) bool {
	if err == nil {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
