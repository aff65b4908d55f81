package speech

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsageTrackerCounters(t *testing.T) {
	tracker := NewUsageTracker(100)

	tracker.AddUsage(2.5, true)
	tracker.AddUsage(1.5, true)
	tracker.AddUsage(3.0, false)

	snap := tracker.Snapshot()
	assert.Equal(t, 7.0, snap.MonthlyUsageMinutes)
	assert.Equal(t, 7.0, snap.DailyUsageMinutes)
	assert.Equal(t, int64(3), snap.TotalRequests)
	assert.Equal(t, int64(2), snap.SuccessfulRequests)
	assert.Equal(t, int64(1), snap.FailedRequests)
	assert.InDelta(t, 7.0, snap.UsagePercentage, 0.01)
	assert.False(t, snap.LimitExceeded)
}

func TestUsageTrackerLimitBoundary(t *testing.T) {
	t.Run("below the limit", func(t *testing.T) {
		tracker := NewUsageTracker(10)
		tracker.AddUsage(9.99, true)
		assert.False(t, tracker.IsLimitExceeded())
	})

	t.Run("exactly at the limit counts as exceeded", func(t *testing.T) {
		tracker := NewUsageTracker(10)
		tracker.AddUsage(10, true)
		assert.True(t, tracker.IsLimitExceeded())
	})

	t.Run("above the limit", func(t *testing.T) {
		tracker := NewUsageTracker(10)
		tracker.AddUsage(10.5, true)
		assert.True(t, tracker.IsLimitExceeded())
	})

	t.Run("zero limit never exceeds", func(t *testing.T) {
		tracker := NewUsageTracker(0)
		tracker.AddUsage(10000, true)
		assert.False(t, tracker.IsLimitExceeded())
		assert.Equal(t, 0.0, tracker.UsagePercentage())
	})
}

func TestUsageTrackerRestore(t *testing.T) {
	tracker := NewUsageTracker(60)
	tracker.Restore(APIUsage{
		MonthlyUsageMinutes: 59.5,
		DailyUsageMinutes:   2.0,
		TotalRequests:       40,
		SuccessfulRequests:  38,
		FailedRequests:      2,
	})

	snap := tracker.Snapshot()
	assert.Equal(t, 59.5, snap.MonthlyUsageMinutes)
	assert.Equal(t, 2.0, snap.DailyUsageMinutes)
	assert.Equal(t, int64(40), snap.TotalRequests)
	assert.Equal(t, 60.0, snap.MonthlyLimitMinutes, "configured limit wins over the snapshot")
	assert.False(t, tracker.IsLimitExceeded())

	// Restored usage counts against the limit like live usage
	tracker.AddUsage(0.5, true)
	assert.True(t, tracker.IsLimitExceeded())
}

func TestUsageTrackerResets(t *testing.T) {
	tracker := NewUsageTracker(10)
	tracker.AddUsage(5, true)
	tracker.AddUsage(6, false)
	assert.True(t, tracker.IsLimitExceeded())

	t.Run("daily reset keeps monthly counter", func(t *testing.T) {
		tracker.ResetDaily()
		snap := tracker.Snapshot()
		assert.Equal(t, 0.0, snap.DailyUsageMinutes)
		assert.Equal(t, 11.0, snap.MonthlyUsageMinutes)
		assert.True(t, snap.LimitExceeded)
	})

	t.Run("monthly reset clears usage but keeps request totals", func(t *testing.T) {
		tracker.ResetMonthly()
		snap := tracker.Snapshot()
		assert.Equal(t, 0.0, snap.MonthlyUsageMinutes)
		assert.Equal(t, 0.0, snap.DailyUsageMinutes)
		assert.False(t, snap.LimitExceeded)
		assert.Equal(t, int64(2), snap.TotalRequests)
	})
}
