package crawler

import "sync/atomic"

// CancelToken is a cooperative cancellation flag owned by the caller of a run.
// The paginator checks it once per page. The zero value is ready to use and a
// nil token is never cancelled.
type CancelToken struct {
	flag atomic.Bool
}

// NewCancelToken returns an unset token.
func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Cancel sets the flag.
func (t *CancelToken) Cancel() {
	if t != nil {
		t.flag.Store(true)
	}
}

// Cancelled reports whether Cancel has been called.
func (t *CancelToken) Cancelled() bool {
	return t != nil && t.flag.Load()
}

// Reset clears the flag so the token can be reused for another run.
func (t *CancelToken) Reset() {
	if t != nil {
		t.flag.Store(false)
	}
}
