package sqlite

import (
	"context"
	"fmt"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// AccountStore implements storage.AccountStore using SQLite.
type AccountStore struct {
	db *DB
}

// NewAccountStore creates a new AccountStore.
func NewAccountStore(db *DB) *AccountStore {
	return &AccountStore{db: db}
}

// Compile-time interface check.
var _ storage.AccountStore = (*AccountStore)(nil)

const accountColumns = `id, label, public_key, sealed_api_key, active, created_at, updated_at`

// Create adds a new account. Returns ErrDuplicateKey if id exists.
func (s *AccountStore) Create(ctx context.Context, a *domain.Account) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
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
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)

	a, err := scanAccount(row)
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
	rows, err := s.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at ASC, id ASC`)
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
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET active = ?, updated_at = ? WHERE id = ?`,
		active, updatedAt, id,
	)
	if err != nil {
		return fmt.Errorf("set account active: %w", err)
	}
	return requireAffected(res)
}

func scanAccount(row scanner) (*domain.Account, error) {
	var a domain.Account
	if err := row.Scan(&a.ID, &a.Label, &a.PublicKey, &a.SealedAPIKey, &a.Active, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
