package crawler

import (
	"fmt"
	"sync"
	"time"

	"tgforge/internal/logger"
)

// Ledger records every request made against the page source, per source key.
type Ledger struct {
	attempts map[string][]Attempt
	order    []string
	mu       sync.Mutex
}

// Attempt records the result of one request.
type Attempt struct {
	Timestamp   time.Time     `json:"timestamp"`
	Source      string        `json:"source"`
	Op          string        `json:"op"`
	Error       string        `json:"error,omitempty"`
	Attempt     int           `json:"attempt"`
	Duration    time.Duration `json:"duration"`
	Success     bool          `json:"success"`
	RateLimited bool          `json:"rateLimited"`
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		attempts: make(map[string][]Attempt),
	}
}

// Record appends one attempt for source.
func (l *Ledger) Record(source, op string, attempt int, err error, duration time.Duration) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.attempts[source]; !ok {
		l.order = append(l.order, source)
	}

	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}

	_, limited := IsRateLimit(err)

	l.attempts[source] = append(l.attempts[source], Attempt{
		Timestamp:   time.Now(),
		Source:      source,
		Op:          op,
		Error:       errMsg,
		Attempt:     attempt,
		Duration:    duration,
		Success:     err == nil,
		RateLimited: limited,
	})
}

// Attempts returns the attempts recorded for source.
func (l *Ledger) Attempts(source string) []Attempt {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]Attempt(nil), l.attempts[source]...)
}

// Stats summarizes the ledger.
func (l *Ledger) Stats() LedgerStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := LedgerStats{
		SourceAttempts: make(map[string]int),
		TotalSources:   len(l.order),
	}

	for source, results := range l.attempts {
		stats.SourceAttempts[source] = len(results)
		stats.TotalAttempts += len(results)

		for _, r := range results {
			switch {
			case r.Success:
				stats.SuccessfulAttempts++
			case r.RateLimited:
				stats.RateLimited++
				stats.FailedAttempts++
			default:
				stats.FailedAttempts++
			}
		}
	}

	return stats
}

// LedgerStats contains statistics about requests.
type LedgerStats struct {
	SourceAttempts     map[string]int `json:"sourceAttempts"`
	TotalSources       int            `json:"totalSources"`
	TotalAttempts      int            `json:"totalAttempts"`
	SuccessfulAttempts int            `json:"successfulAttempts"`
	FailedAttempts     int            `json:"failedAttempts"`
	RateLimited        int            `json:"rateLimited"`
}

// String returns a string representation of ledger stats.
func (s LedgerStats) String() string {
	return fmt.Sprintf(
		"Sources: %d | Requests: %d total, %d success, %d failed (%d rate limited)",
		s.TotalSources,
		s.TotalAttempts,
		s.SuccessfulAttempts,
		s.FailedAttempts,
		s.RateLimited,
	)
}

// LogSummary logs a per-source summary using the provided logger.
func (l *Ledger) LogSummary(log *logger.Logger) {
	l.mu.Lock()
	order := append([]string(nil), l.order...)
	l.mu.Unlock()

	log.Info("📊 Fetch summary")

	for i, source := range order {
		results := l.Attempts(source)

		failed := 0

		var elapsed time.Duration

		for _, r := range results {
			elapsed += r.Duration
			if !r.Success {
				failed++
			}
		}

		status := "✅"
		if len(results) > 0 && !results[len(results)-1].Success {
			status = "❌"
		}

		log.Info(fmt.Sprintf("%d. %s %s", i+1, status, source),
			"requests", len(results),
			"failed", failed,
			"elapsed", elapsed.Round(time.Millisecond),
		)
	}

	log.Info(fmt.Sprintf("Overall: %s", l.Stats()))
}

// Reset clears the ledger.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.attempts = make(map[string][]Attempt)
	l.order = nil
}
