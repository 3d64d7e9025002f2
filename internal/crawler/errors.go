package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Page source errors.
var (
	ErrSourceNotFound   = errors.New("source not found")
	ErrRetriesExhausted = errors.New("rate limit retries exhausted")
)

// RateLimitError is returned by a page source when the provider asks the
// caller to back off for Wait before retrying.
type RateLimitError struct {
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.Wait)
}

// TransportError wraps any other failure talking to the page source.
type TransportError struct {
	Err error
	Op  string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsRateLimit reports whether err carries a provider wait.
func IsRateLimit(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.Wait, true
	}

	return 0, false
}

// Reason classifies an error for reports and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSourceNotFound):
		return "not_found"
	case errors.Is(err, ErrRetriesExhausted):
		return "rate_limited"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "context"
	default:
		return "transport"
	}
}
