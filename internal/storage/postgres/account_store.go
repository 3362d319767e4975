package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// AccountStore implements storage.AccountStore using PostgreSQL.
type AccountStore struct {
	pool *Pool
}

// NewAccountStore creates a new AccountStore.
func NewAccountStore(pool *Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AccountStore = (*AccountStore)(nil)

// Create adds a new account. Returns ErrDuplicateKey if id exists.
func (s *AccountStore) Create(ctx context.Context, a *domain.Account) error {
	query := `
		INSERT INTO accounts (id, label, public_key, sealed_api_key, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		a.ID, a.Label, a.PublicKey, a.SealedAPIKey, a.Active, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByID retrieves an account by its ID. Returns ErrNotFound if not exists.
func (s *AccountStore) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `
		SELECT id, label, public_key, sealed_api_key, active, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	a, err := scanAccount(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get account by id: %w", err)
	}
	return a, nil
}

// List retrieves all accounts ordered by created_at ASC.
func (s *AccountStore) List(ctx context.Context) ([]*domain.Account, error) {
	query := `
		SELECT id, label, public_key, sealed_api_key, active, created_at, updated_at
		FROM accounts
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account row: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account rows: %w", err)
	}
	return accounts, nil
}

// SetActive toggles an account. Returns ErrNotFound if not exists.
func (s *AccountStore) SetActive(ctx context.Context, id string, active bool, updatedAt int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE accounts SET active = $2, updated_at = $3 WHERE id = $1`,
		id, active, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("set account active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	if err := row.Scan(&a.ID, &a.Label, &a.PublicKey, &a.SealedAPIKey, &a.Active, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
