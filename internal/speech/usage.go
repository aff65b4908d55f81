package speech

import (
	"sync"
	"time"
)

// APIUsage is a point-in-time snapshot of the quota counters
type APIUsage struct {
	MonthlyUsageMinutes float64   `json:"monthly_usage_minutes"`
	DailyUsageMinutes   float64   `json:"daily_usage_minutes"`
	MonthlyLimitMinutes float64   `json:"monthly_limit_minutes"`
	TotalRequests       int64     `json:"total_requests"`
	SuccessfulRequests  int64     `json:"successful_requests"`
	FailedRequests      int64     `json:"failed_requests"`
	UsagePercentage     float64   `json:"usage_percentage"`
	LimitExceeded       bool      `json:"limit_exceeded"`
	LastResetDate       time.Time `json:"last_reset_date"`
	LastUpdated         time.Time `json:"last_updated"`
}

// UsageTracker tracks monthly and daily speech API consumption. It is owned
// exclusively by the Processor and mutated only after a transcription
// attempt completes. Resets are explicit admin actions, never automatic
// calendar rollover.
type UsageTracker struct {
	mu sync.Mutex

	monthlyUsageMinutes float64
	dailyUsageMinutes   float64
	monthlyLimitMinutes float64
	totalRequests       int64
	successfulRequests  int64
	failedRequests      int64
	lastResetDate       time.Time
	lastUpdated         time.Time
}

// NewUsageTracker creates a tracker with the given monthly limit in minutes.
// A limit of 0 means unlimited.
func NewUsageTracker(monthlyLimitMinutes float64) *UsageTracker {
	now := time.Now().UTC()
	return &UsageTracker{
		monthlyLimitMinutes: monthlyLimitMinutes,
		lastResetDate:       now,
		lastUpdated:         now,
	}
}

// Restore seeds the counters from a persisted snapshot so usage survives a
// restart. The limit configured at construction time wins over the stored
// one.
func (t *UsageTracker) Restore(snap APIUsage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.monthlyUsageMinutes = snap.MonthlyUsageMinutes
	t.dailyUsageMinutes = snap.DailyUsageMinutes
	t.totalRequests = snap.TotalRequests
	t.successfulRequests = snap.SuccessfulRequests
	t.failedRequests = snap.FailedRequests
	if !snap.LastResetDate.IsZero() {
		t.lastResetDate = snap.LastResetDate
	}
	t.lastUpdated = time.Now().UTC()
}

// AddUsage records one transcription attempt. Minutes count against both the
// monthly and daily counters regardless of success.
func (t *UsageTracker) AddUsage(minutes float64, success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.monthlyUsageMinutes += minutes
	t.dailyUsageMinutes += minutes
	t.totalRequests++
	if success {
		t.successfulRequests++
	} else {
		t.failedRequests++
	}
	t.lastUpdated = time.Now().UTC()
}

// IsLimitExceeded reports whether the monthly limit has been reached.
// The boundary is inclusive: usage equal to the limit counts as exceeded.
// A zero limit never exceeds.
func (t *UsageTracker) IsLimitExceeded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.limitExceededLocked()
}

func (t *UsageTracker) limitExceededLocked() bool {
	if t.monthlyLimitMinutes <= 0 {
		return false
	}
	return t.monthlyUsageMinutes >= t.monthlyLimitMinutes
}

// UsagePercentage returns monthly usage as a percentage of the limit,
// 0 when no limit is configured
func (t *UsageTracker) UsagePercentage() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.monthlyLimitMinutes <= 0 {
		return 0
	}
	return t.monthlyUsageMinutes / t.monthlyLimitMinutes * 100
}

// ResetMonthly clears the monthly and daily counters. Request counters are
// kept as lifetime totals.
func (t *UsageTracker) ResetMonthly() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.monthlyUsageMinutes = 0
	t.dailyUsageMinutes = 0
	t.lastResetDate = time.Now().UTC()
	t.lastUpdated = t.lastResetDate
}

// ResetDaily clears the daily counter only
func (t *UsageTracker) ResetDaily() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.dailyUsageMinutes = 0
	t.lastUpdated = time.Now().UTC()
}

// Snapshot returns a copy of the current counters
func (t *UsageTracker) Snapshot() APIUsage {
	t.mu.Lock()
	defer t.mu.Unlock()

	pct := 0.0
	if t.monthlyLimitMinutes > 0 {
		pct = t.monthlyUsageMinutes / t.monthlyLimitMinutes * 100
	}

	return APIUsage{
		MonthlyUsageMinutes: t.monthlyUsageMinutes,
		DailyUsageMinutes:   t.dailyUsageMinutes,
		MonthlyLimitMinutes: t.monthlyLimitMinutes,
		TotalRequests:       t.totalRequests,
		SuccessfulRequests:  t.successfulRequests,
		FailedRequests:      t.failedRequests,
		UsagePercentage:     pct,
		LimitExceeded:       t.limitExceededLocked(),
		LastResetDate:       t.lastResetDate,
		LastUpdated:         t.lastUpdated,
	}
}
