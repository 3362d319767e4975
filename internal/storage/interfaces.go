package storage

import (
	"context"

	"solana-sniper/internal/domain"
)

// RuleStore provides CRUD access to sniper rules.
type RuleStore interface {
	// Create adds a new rule. Returns ErrDuplicateKey if id exists.
	Create(ctx context.Context, r *domain.Rule) error

	// Update replaces an existing rule. Returns ErrNotFound if not exists.
	Update(ctx context.Context, r *domain.Rule) error

	// Delete removes a rule. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, id string) error

	// GetByID retrieves a rule by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Rule, error)

	// List retrieves all rules ordered by created_at ASC.
	List(ctx context.Context) ([]*domain.Rule, error)

	// ListEnabled retrieves enabled rules ordered by created_at ASC.
	ListEnabled(ctx context.Context) ([]*domain.Rule, error)

	// SetEnabled toggles a rule. Returns ErrNotFound if not exists.
	SetEnabled(ctx context.Context, id string, enabled bool, updatedAt int64) error
}

// TransactionStore provides append-only access to transaction records.
type TransactionStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, t *domain.TransactionRecord) error

	// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.TransactionRecord, error)

	// GetByMatchID retrieves all records for a match, ordered by timestamp ASC.
	GetByMatchID(ctx context.Context, matchID string) ([]*domain.TransactionRecord, error)

	// GetByMint retrieves all records for a mint, ordered by timestamp ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.TransactionRecord, error)

	// GetByTimeRange retrieves records within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TransactionRecord, error)

	// ListRecent retrieves the newest records, ordered by timestamp DESC.
	ListRecent(ctx context.Context, limit int) ([]*domain.TransactionRecord, error)
}

// SafetyStateStore persists the single Safety State record.
type SafetyStateStore interface {
	// Load retrieves the state. Returns ErrNotFound if nothing was saved yet.
	Load(ctx context.Context) (*domain.SafetyState, error)

	// Save overwrites the state.
	Save(ctx context.Context, s *domain.SafetyState) error
}

// AccountStore provides access to trading accounts.
type AccountStore interface {
	// Create adds a new account. Returns ErrDuplicateKey if id exists.
	Create(ctx context.Context, a *domain.Account) error

	// GetByID retrieves an account by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Account, error)

	// List retrieves all accounts ordered by created_at ASC.
	List(ctx context.Context) ([]*domain.Account, error)

	// SetActive toggles an account. Returns ErrNotFound if not exists.
	SetActive(ctx context.Context, id string, active bool, updatedAt int64) error
}
