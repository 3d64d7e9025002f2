package crawler

import (
	"context"
	"fmt"
	"time"

	"tgforge/internal/config"
	"tgforge/internal/logger"
	"tgforge/internal/metrics"
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retrier retries calls that fail with a RateLimitError, honoring the wait
// the provider asked for. Any other error is returned immediately.
type Retrier struct {
	policy *config.RetryPolicy
	sleep  SleepFunc
	ledger *Ledger
	log    *logger.Logger
}

// NewRetrier creates a retrier. A nil ledger disables attempt recording.
func NewRetrier(policy *config.RetryPolicy, ledger *Ledger, log *logger.Logger) *Retrier {
	return &Retrier{
		policy: policy,
		sleep:  Sleep,
		ledger: ledger,
		log:    log,
	}
}

// WithSleep replaces the sleep function, for tests.
func (r *Retrier) WithSleep(sleep SleepFunc) *Retrier {
	r.sleep = sleep

	return r
}

// Ledger returns the attempt ledger, which may be nil.
func (r *Retrier) Ledger() *Ledger {
	return r.ledger
}

// Call runs fn until it succeeds, fails with a non rate-limit error, or the
// policy's attempt ceiling is reached.
func Call[T any](ctx context.Context, r *Retrier, source, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		start := time.Now()
		result, err := fn(ctx)
		r.ledger.Record(source, op, attempt, err, time.Since(start))

		if err == nil {
			return result, nil
		}

		wait, limited := IsRateLimit(err)
		if !limited {
			return zero, err
		}

		lastErr = err

		if attempt == r.policy.MaxAttempts {
			break
		}

		delay := r.policy.FloodWait(wait, attempt)
		metrics.RateLimitWaits.Inc()
		r.log.Warn("⏳ Rate limited, waiting",
			"source", source,
			"op", op,
			"attempt", attempt,
			"max_attempts", r.policy.MaxAttempts,
			"wait", delay,
		)

		if err := r.sleep(ctx, delay); err != nil {
			return zero, fmt.Errorf("waiting out rate limit: %w", err)
		}
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, r.policy.MaxAttempts, lastErr)
}
