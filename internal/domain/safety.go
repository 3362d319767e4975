package domain

// DateLayout is the layout of SafetyState.LastResetDate.
const DateLayout = "2006-01-02"

// SafetyState is the engine-wide execution bookkeeping.
// Single record per engine instance.
type SafetyState struct {
	TotalAttempts  int64   `json:"total_attempts"`
	SuccessCount   int64   `json:"success_count"`
	FailureCount   int64   `json:"failure_count"`
	TotalSpent     float64 `json:"total_spent"`     // SOL
	RealizedProfit float64 `json:"realized_profit"` // SOL
	AverageSpeedMs float64 `json:"average_speed_ms"`
	LastExecution  *int64  `json:"last_execution,omitempty"` // ms
	DailySpent     float64 `json:"daily_spent"`              // SOL since LastResetDate
	LastResetDate  string  `json:"last_reset_date"`          // YYYY-MM-DD
	UpdatedAt      int64   `json:"updated_at"`               // ms
}

// SuccessRate returns successes over attempts, or 0 with no attempts.
func (s SafetyState) SuccessRate() float64 {
	if s.TotalAttempts == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(s.TotalAttempts)
}
