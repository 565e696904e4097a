package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// Transienter is implemented by error types that know whether retrying the
// failed operation can help. The calling-platform client marks transport
// failures transient and envelope rejections permanent through it.
type Transienter interface {
	Transient() bool
}

// IsTransient reports whether err is worth retrying. An error that implements
// Transienter decides for itself; otherwise network-level timeouts and
// connection failures qualify and everything else is treated as permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var tr Transienter
	if errors.As(err, &tr) {
		return tr.Transient()
	}

	// Cancellation means the caller gave up, not that the platform hiccuped.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// The platform sits behind an edge proxy; its connection drops often
	// surface only as wrapped message text by the time they reach us.
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus reports whether an HTTP status from the calling
// platform or the model provider indicates a retryable condition. Gateway
// statuses from the platform's edge proxy are included.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504, // Gateway Timeout
		522, // edge proxy: connection timed out
		524: // edge proxy: origin timeout
		return true
	default:
		return false
	}
}
