package postgres

import (
	"context"
	"fmt"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// SafetyStateStore implements storage.SafetyStateStore using PostgreSQL.
// The state lives in a single row with id = 1.
type SafetyStateStore struct {
	pool *Pool
}

// NewSafetyStateStore creates a new SafetyStateStore.
func NewSafetyStateStore(pool *Pool) *SafetyStateStore {
	return &SafetyStateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SafetyStateStore = (*SafetyStateStore)(nil)

// Load retrieves the state. Returns ErrNotFound if nothing was saved yet.
func (s *SafetyStateStore) Load(ctx context.Context) (*domain.SafetyState, error) {
	query := `
		SELECT
			total_attempts, success_count, failure_count,
			total_spent, realized_profit, average_speed_ms,
			last_execution, daily_spent, last_reset_date, updated_at
		FROM safety_state
		WHERE id = 1
	`

	var st domain.SafetyState
	err := s.pool.QueryRow(ctx, query).Scan(
		&st.TotalAttempts, &st.SuccessCount, &st.FailureCount,
		&st.TotalSpent, &st.RealizedProfit, &st.AverageSpeedMs,
		&st.LastExecution, &st.DailySpent, &st.LastResetDate, &st.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("load safety state: %w", err)
	}
	return &st, nil
}

// Save overwrites the state.
func (s *SafetyStateStore) Save(ctx context.Context, st *domain.SafetyState) error {
	query := `
		INSERT INTO safety_state (
			id, total_attempts, success_count, failure_count,
			total_spent, realized_profit, average_speed_ms,
			last_execution, daily_spent, last_reset_date, updated_at
		) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			total_attempts = EXCLUDED.total_attempts,
			success_count = EXCLUDED.success_count,
			failure_count = EXCLUDED.failure_count,
			total_spent = EXCLUDED.total_spent,
			realized_profit = EXCLUDED.realized_profit,
			average_speed_ms = EXCLUDED.average_speed_ms,
			last_execution = EXCLUDED.last_execution,
			daily_spent = EXCLUDED.daily_spent,
			last_reset_date = EXCLUDED.last_reset_date,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		st.TotalAttempts, st.SuccessCount, st.FailureCount,
		st.TotalSpent, st.RealizedProfit, st.AverageSpeedMs,
		st.LastExecution, st.DailySpent, st.LastResetDate, st.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save safety state: %w", err)
	}
	return nil
}
