// Package safety tracks engine-wide execution counters and spend limits.
package safety

import (
	"sync"
	"time"

	"solana-sniper/internal/domain"
)

// Tracker owns the Safety State. All reads and writes go through its lock;
// callers only ever see snapshots.
type Tracker struct {
	mu    sync.Mutex
	state domain.SafetyState
	loc   *time.Location
}

// NewTracker creates a tracker whose calendar day is evaluated in loc.
// A nil loc means time.Local.
func NewTracker(loc *time.Location) *Tracker {
	if loc == nil {
		loc = time.Local
	}
	return &Tracker{loc: loc}
}

// Restore replaces the in-memory state, typically with the persisted record at startup.
func (t *Tracker) Restore(s domain.SafetyState) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = copyState(s)
}

// Snapshot returns a consistent copy of the state after applying the daily reset.
func (t *Tracker) Snapshot(now time.Time) domain.SafetyState {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetIfNewDay(now)
	return copyState(t.state)
}

// RecordAttempt counts an execution attempt. Called before any account-level work.
func (t *Tracker) RecordAttempt(now time.Time) domain.SafetyState {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetIfNewDay(now)
	t.state.TotalAttempts++
	t.state.UpdatedAt = now.UnixMilli()
	return copyState(t.state)
}

// RecordSuccess accounts a successful acquisition of amount SOL that took latency.
func (t *Tracker) RecordSuccess(amount float64, latency time.Duration, now time.Time) domain.SafetyState {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetIfNewDay(now)
	t.state.SuccessCount++
	t.state.TotalSpent += amount
	t.state.DailySpent += amount

	ts := now.UnixMilli()
	t.state.LastExecution = &ts

	n := float64(t.state.SuccessCount)
	sample := float64(latency) / float64(time.Millisecond)
	t.state.AverageSpeedMs = (t.state.AverageSpeedMs*(n-1) + sample) / n

	t.state.UpdatedAt = ts
	return copyState(t.state)
}

// RecordFailure counts a failed attempt or an aborted match.
func (t *Tracker) RecordFailure(now time.Time) domain.SafetyState {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetIfNewDay(now)
	t.state.FailureCount++
	t.state.UpdatedAt = now.UnixMilli()
	return copyState(t.state)
}

// RecordProfit adds realized profit (negative for a loss) from a disposal.
func (t *Tracker) RecordProfit(delta float64, now time.Time) domain.SafetyState {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetIfNewDay(now)
	t.state.RealizedProfit += delta
	t.state.UpdatedAt = now.UnixMilli()
	return copyState(t.state)
}

// resetIfNewDay clears DailySpent once per calendar day. Must hold t.mu.
// Comparing against the stored date makes concurrent first accesses reset once.
func (t *Tracker) resetIfNewDay(now time.Time) {
	today := now.In(t.loc).Format(domain.DateLayout)
	if t.state.LastResetDate == today {
		return
	}
	t.state.DailySpent = 0
	t.state.LastResetDate = today
}

func copyState(s domain.SafetyState) domain.SafetyState {
	if s.LastExecution != nil {
		v := *s.LastExecution
		s.LastExecution = &v
	}
	return s
}
