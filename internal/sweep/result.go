package sweep

import (
	"sync"
	"sync/atomic"
	"time"
)

// Batch status values. PASS means zero failures; PARTIAL means the sweep
// completed but some accounts could not be evaluated.
const (
	StatusPass    = "PASS"
	StatusPartial = "PARTIAL"
)

// AccountError is one per-account failure detail. The list in BatchResult
// is capped; counters carry the full tally.
type AccountError struct {
	AccountID string `json:"account_id"`
	Login     int64  `json:"login,omitempty"`
	Error     string `json:"error"`
}

// Metrics aggregates per-account evaluation latency for one sweep.
type Metrics struct {
	AvgLatencyMs int64 `json:"avg_latency_ms"`
	MaxLatencyMs int64 `json:"max_latency_ms"`
}

// BatchResult is the aggregated outcome of one sweep. It is always
// well-formed, even when every account failed.
type BatchResult struct {
	ID            string         `json:"id"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
	Status        string         `json:"status"`
	TotalAccounts int            `json:"total_accounts"`
	SuccessCount  int            `json:"success_count"`
	FailureCount  int            `json:"failure_count"`
	SkippedCount  int            `json:"skipped_count"`
	BreachCount   int            `json:"breach_count"`
	Metrics       Metrics        `json:"metrics"`
	Errors        []AccountError `json:"errors,omitempty"`
}

// counters is the only state shared between sweep workers. Counts use
// atomics; the capped error list takes a mutex.
type counters struct {
	success atomic.Int64
	failure atomic.Int64
	skipped atomic.Int64
	breach  atomic.Int64

	latencyTotalMs atomic.Int64
	latencyCount   atomic.Int64
	latencyMaxMs   atomic.Int64

	mu        sync.Mutex
	errors    []AccountError
	maxErrors int
}

func newCounters(maxErrors int) *counters {
	if maxErrors <= 0 {
		maxErrors = 20
	}
	return &counters{maxErrors: maxErrors}
}

func (c *counters) recordLatency(d time.Duration) {
	ms := d.Milliseconds()
	c.latencyTotalMs.Add(ms)
	c.latencyCount.Add(1)
	for {
		cur := c.latencyMaxMs.Load()
		if ms <= cur || c.latencyMaxMs.CompareAndSwap(cur, ms) {
			return
		}
	}
}

func (c *counters) recordError(accountID string, login int64, err error) {
	c.failure.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.errors) < c.maxErrors {
		c.errors = append(c.errors, AccountError{AccountID: accountID, Login: login, Error: err.Error()})
	}
}

func (c *counters) result(id string, total int, startedAt, finishedAt time.Time) *BatchResult {
	res := &BatchResult{
		ID:            id,
		StartedAt:     startedAt,
		FinishedAt:    finishedAt,
		TotalAccounts: total,
		SuccessCount:  int(c.success.Load()),
		FailureCount:  int(c.failure.Load()),
		SkippedCount:  int(c.skipped.Load()),
		BreachCount:   int(c.breach.Load()),
	}
	if n := c.latencyCount.Load(); n > 0 {
		res.Metrics.AvgLatencyMs = c.latencyTotalMs.Load() / n
		res.Metrics.MaxLatencyMs = c.latencyMaxMs.Load()
	}
	res.Status = StatusPass
	if res.FailureCount > 0 {
		res.Status = StatusPartial
	}
	c.mu.Lock()
	res.Errors = append([]AccountError(nil), c.errors...)
	c.mu.Unlock()
	return res
}
