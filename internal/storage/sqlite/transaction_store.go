package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// TransactionStore implements storage.TransactionStore using SQLite.
type TransactionStore struct {
	db *DB
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(db *DB) *TransactionStore {
	return &TransactionStore{db: db}
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
	query := `INSERT INTO transactions (` + transactionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
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
	row := s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)

	t, err := scanTransaction(row)
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
	return s.query(ctx, "get transaction records by match id",
		`SELECT `+transactionColumns+` FROM transactions WHERE match_id = ? ORDER BY timestamp ASC, id ASC`, matchID)
}

// GetByMint retrieves all records for a mint, ordered by timestamp ASC.
func (s *TransactionStore) GetByMint(ctx context.Context, mint string) ([]*domain.TransactionRecord, error) {
	return s.query(ctx, "get transaction records by mint",
		`SELECT `+transactionColumns+` FROM transactions WHERE mint = ? ORDER BY timestamp ASC, id ASC`, mint)
}

// GetByTimeRange retrieves records within [start, end] (inclusive), ordered by timestamp ASC.
func (s *TransactionStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TransactionRecord, error) {
	return s.query(ctx, "get transaction records by time range",
		`SELECT `+transactionColumns+` FROM transactions WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp ASC, id ASC`,
		start, end)
}

// ListRecent retrieves the newest records, ordered by timestamp DESC.
// A non-positive limit returns everything.
func (s *TransactionStore) ListRecent(ctx context.Context, limit int) ([]*domain.TransactionRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	return s.query(ctx, "list recent transaction records",
		`SELECT `+transactionColumns+` FROM transactions ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
}

func (s *TransactionStore) query(ctx context.Context, op, query string, args ...any) ([]*domain.TransactionRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

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

func scanTransaction(row scanner) (*domain.TransactionRecord, error) {
	var t domain.TransactionRecord
	var action string
	var signature, errMsg sql.NullString

	err := row.Scan(
		&t.ID, &t.MatchID, &t.RuleID, &t.Mint, &t.Name, &t.Symbol, &action,
		&t.Amount, &t.Price, &t.Slippage, &t.Fee, &t.Account,
		&signature, &t.Success, &errMsg, &t.LatencyMs, &t.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	t.Action = domain.Action(action)
	if signature.Valid {
		t.Signature = &signature.String
	}
	if errMsg.Valid {
		t.Error = &errMsg.String
	}
	return &t, nil
}
