package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// SafetyStateStore implements storage.SafetyStateStore using SQLite.
type SafetyStateStore struct {
	db *DB
}

// NewSafetyStateStore creates a new SafetyStateStore.
func NewSafetyStateStore(db *DB) *SafetyStateStore {
	return &SafetyStateStore{db: db}
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
	var last sql.NullInt64
	err := s.db.QueryRowContext(ctx, query).Scan(
		&st.TotalAttempts, &st.SuccessCount, &st.FailureCount,
		&st.TotalSpent, &st.RealizedProfit, &st.AverageSpeedMs,
		&last, &st.DailySpent, &st.LastResetDate, &st.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("load safety state: %w", err)
	}
	if last.Valid {
		st.LastExecution = &last.Int64
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
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			total_attempts = excluded.total_attempts,
			success_count = excluded.success_count,
			failure_count = excluded.failure_count,
			total_spent = excluded.total_spent,
			realized_profit = excluded.realized_profit,
			average_speed_ms = excluded.average_speed_ms,
			last_execution = excluded.last_execution,
			daily_spent = excluded.daily_spent,
			last_reset_date = excluded.last_reset_date,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		st.TotalAttempts, st.SuccessCount, st.FailureCount,
		st.TotalSpent, st.RealizedProfit, st.AverageSpeedMs,
		st.LastExecution, st.DailySpent, st.LastResetDate, st.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save safety state: %w", err)
	}
	return nil
}
