package pixpoc

import (
	"context"
	"errors"
	"fmt"

	"github.com/financebot/financebot/internal/resilience"
)

// NetworkError indicates the request never produced a usable HTTP response
// (DNS failure, connection reset, timeout). Callers may retry.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("pixpoc: %s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Transient reports whether a retry can help: every transport failure except
// an explicit cancellation. The retry loop stops on its own once the parent
// context is done.
func (e *NetworkError) Transient() bool {
	return !errors.Is(e.Err, context.Canceled)
}

// APIError indicates the platform answered but with a non-success envelope or
// HTTP status. Distinguishable from NetworkError so callers can decide
// whether a retry makes sense.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("pixpoc: %s: api error (HTTP %d): %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("pixpoc: %s: api error: %s", e.Op, e.Message)
}

// Transient is true only for gateway-level statuses. An envelope rejection
// arrives with HTTP 200 and is never retried.
func (e *APIError) Transient() bool {
	return resilience.IsTransientHTTPStatus(e.StatusCode)
}
