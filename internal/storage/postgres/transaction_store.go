package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

const transactionColumns = `
	id, match_id, rule_id, mint, name, symbol, action,
	amount, price, slippage, fee, account,
	signature, success, error, latency_ms, timestamp
`

// Insert adds a new record. Returns ErrDuplicateKey if id exists.
func (s *TransactionStore) Insert(ctx context.Context, t *domain.TransactionRecord) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17
		)
	`

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.MatchID, t.RuleID, t.Mint, t.Name, t.Symbol, string(t.Action),
		t.Amount, t.Price, t.Slippage, t.Fee, t.Account,
		t.Signature, t.Success, t.Error, t.LatencyMs, t.Timestamp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transaction record: %w", err)
	}
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetByID(ctx context.Context, id string) (*domain.TransactionRecord, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	t, err := scanTransaction(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction record by id: %w", err)
	}
	return t, nil
}

// GetByMatchID retrieves all records for a match, ordered by timestamp ASC.
func (s *TransactionStore) GetByMatchID(ctx context.Context, matchID string) ([]*domain.TransactionRecord, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE match_id = $1
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("get transaction records by match id: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// GetByMint retrieves all records for a mint, ordered by timestamp ASC.
func (s *TransactionStore) GetByMint(ctx context.Context, mint string) ([]*domain.TransactionRecord, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE mint = $1
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("get transaction records by mint: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// GetByTimeRange retrieves records within [start, end] (inclusive), ordered by timestamp ASC.
func (s *TransactionStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TransactionRecord, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE timestamp >= $1 AND timestamp <= $2
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get transaction records by time range: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// ListRecent retrieves the newest records, ordered by timestamp DESC.
// A non-positive limit returns everything.
func (s *TransactionStore) ListRecent(ctx context.Context, limit int) ([]*domain.TransactionRecord, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		ORDER BY timestamp DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recent transaction records: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// scanTransaction scans a single row into a TransactionRecord.
func scanTransaction(row pgx.Row) (*domain.TransactionRecord, error) {
	var t domain.TransactionRecord
	var action string

	err := row.Scan(
		&t.ID, &t.MatchID, &t.RuleID, &t.Mint, &t.Name, &t.Symbol, &action,
		&t.Amount, &t.Price, &t.Slippage, &t.Fee, &t.Account,
		&t.Signature, &t.Success, &t.Error, &t.LatencyMs, &t.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	t.Action = domain.Action(action)
	return &t, nil
}

// scanTransactions scans multiple rows into a slice of TransactionRecord.
func scanTransactions(rows pgx.Rows) ([]*domain.TransactionRecord, error) {
	var records []*domain.TransactionRecord

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction record row: %w", err)
		}
		records = append(records, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction record rows: %w", err)
	}

	return records, nil
}
