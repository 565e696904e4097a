package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/financebot/financebot/internal/resilience"
	"github.com/financebot/financebot/pkg/pixpoc"
)

func TestIsTransient_PlatformNetworkFailure(t *testing.T) {
	err := &pixpoc.NetworkError{Op: "get call analysis", Err: syscall.ECONNRESET}
	assert.True(t, resilience.IsTransient(err))

	wrapped := fmt.Errorf("fetch analysis: %w", err)
	assert.True(t, resilience.IsTransient(wrapped), "classification must survive wrapping")
}

func TestIsTransient_CancelledRequestIsPermanent(t *testing.T) {
	err := &pixpoc.NetworkError{Op: "initiate call", Err: context.Canceled}
	assert.False(t, resilience.IsTransient(err), "the caller gave up, retrying is pointless")

	assert.False(t, resilience.IsTransient(context.Canceled))
	assert.False(t, resilience.IsTransient(context.DeadlineExceeded))
}

func TestIsTransient_PlatformGatewayStatuses(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504, 522, 524} {
		err := &pixpoc.APIError{Op: "get call details", StatusCode: code, Message: "upstream unhappy"}
		assert.True(t, resilience.IsTransient(err), "HTTP %d from the platform should be retried", code)
	}
}

func TestIsTransient_EnvelopeRejectionIsPermanent(t *testing.T) {
	// success=false arrives with HTTP 200; hammering the platform again
	// yields the same answer.
	err := &pixpoc.APIError{Op: "initiate call", StatusCode: 200, Message: "agent not found"}
	assert.False(t, resilience.IsTransient(err))

	for _, code := range []int{400, 401, 403, 404, 422} {
		err := &pixpoc.APIError{Op: "get call transcript", StatusCode: code}
		assert.False(t, resilience.IsTransient(err), "HTTP %d must not be retried", code)
	}
}

func TestIsTransient_BareNetworkErrors(t *testing.T) {
	assert.True(t, resilience.IsTransient(&net.DNSError{IsTimeout: true, Err: "timeout"}))
	assert.True(t, resilience.IsTransient(fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED)))
	assert.True(t, resilience.IsTransient(errors.New("read: connection reset by peer")))
	assert.True(t, resilience.IsTransient(errors.New("net/http: TLS handshake timeout")))
}

func TestIsTransient_OrdinaryErrorsArePermanent(t *testing.T) {
	assert.False(t, resilience.IsTransient(nil))
	assert.False(t, resilience.IsTransient(errors.New("invalid payload: missing status")))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504, 522, 524} {
		assert.True(t, resilience.IsTransientHTTPStatus(code), "HTTP %d", code)
	}
	for _, code := range []int{0, 200, 201, 400, 401, 403, 404, 405, 409, 422} {
		assert.False(t, resilience.IsTransientHTTPStatus(code), "HTTP %d", code)
	}
}
