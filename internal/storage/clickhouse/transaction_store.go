package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// TransactionStore implements storage.TransactionStore using ClickHouse.
// It serves as the analytical mirror of the primary transaction log.
type TransactionStore struct {
	conn *Conn
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(conn *Conn) *TransactionStore {
	return &TransactionStore{conn: conn}
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
	// ReplacingMergeTree would silently collapse duplicates; keep append-only semantics.
	exists, err := s.exists(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `
		INSERT INTO transactions (` + transactionColumns + `) VALUES (
			?, ?, ?, ?, ?, ?, ?,
			?, ?, ?, ?, ?,
			?, ?, ?, ?, ?
		)
	`

	err = s.conn.Exec(ctx, query,
		t.ID, t.MatchID, t.RuleID, t.Mint, t.Name, t.Symbol, string(t.Action),
		t.Amount, t.Price, t.Slippage, t.Fee, t.Account,
		t.Signature, t.Success, t.Error, t.LatencyMs, t.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert transaction record: %w", err)
	}
	return nil
}

// InsertBatch appends records in one batch. Used by the archive backfill.
func (s *TransactionStore) InsertBatch(ctx context.Context, records []*domain.TransactionRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO transactions (`+transactionColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range records {
		err = batch.Append(
			t.ID, t.MatchID, t.RuleID, t.Mint, t.Name, t.Symbol, string(t.Action),
			t.Amount, t.Price, t.Slippage, t.Fee, t.Account,
			t.Signature, t.Success, t.Error, t.LatencyMs, t.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetByID(ctx context.Context, id string) (*domain.TransactionRecord, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions FINAL WHERE id = ? LIMIT 1`, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction record by id: %w", err)
	}
	defer rows.Close()

	records, err := scanTransactions(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.ErrNotFound
	}
	return records[0], nil
}

// GetByMatchID retrieves all records for a match, ordered by timestamp ASC.
func (s *TransactionStore) GetByMatchID(ctx context.Context, matchID string) ([]*domain.TransactionRecord, error) {
	return s.query(ctx, "get transaction records by match id",
		`SELECT `+transactionColumns+` FROM transactions FINAL
		WHERE match_id = ?
		ORDER BY timestamp ASC, id ASC`, matchID)
}

// GetByMint retrieves all records for a mint, ordered by timestamp ASC.
func (s *TransactionStore) GetByMint(ctx context.Context, mint string) ([]*domain.TransactionRecord, error) {
	return s.query(ctx, "get transaction records by mint",
		`SELECT `+transactionColumns+` FROM transactions FINAL
		WHERE mint = ?
		ORDER BY timestamp ASC, id ASC`, mint)
}

// GetByTimeRange retrieves records within [start, end] (inclusive), ordered by timestamp ASC.
func (s *TransactionStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TransactionRecord, error) {
	return s.query(ctx, "get transaction records by time range",
		`SELECT `+transactionColumns+` FROM transactions FINAL
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC, id ASC`, start, end)
}

// ListRecent retrieves the newest records, ordered by timestamp DESC.
// A non-positive limit returns everything.
func (s *TransactionStore) ListRecent(ctx context.Context, limit int) ([]*domain.TransactionRecord, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions FINAL ORDER BY timestamp DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	return s.query(ctx, "list recent transaction records", query)
}

// RuleSpend is the successful acquisition volume of one rule.
type RuleSpend struct {
	RuleID    string
	Spent     float64
	Successes uint64
	Failures  uint64
}

// SpendByRule aggregates acquisition volume per rule for records within [start, end].
// Ordered by spend DESC.
func (s *TransactionStore) SpendByRule(ctx context.Context, start, end int64) ([]RuleSpend, error) {
	query := `
		SELECT
			rule_id,
			sumIf(amount, success) AS spent,
			countIf(success) AS successes,
			countIf(NOT success) AS failures
		FROM transactions FINAL
		WHERE timestamp >= ? AND timestamp <= ?
		GROUP BY rule_id
		ORDER BY spent DESC, rule_id ASC
	`

	rows, err := s.conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query spend by rule: %w", err)
	}
	defer rows.Close()

	var result []RuleSpend
	for rows.Next() {
		var r RuleSpend
		if err := rows.Scan(&r.RuleID, &r.Spent, &r.Successes, &r.Failures); err != nil {
			return nil, fmt.Errorf("scan spend row: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spend rows: %w", err)
	}
	return result, nil
}

func (s *TransactionStore) exists(ctx context.Context, id string) (bool, error) {
	var count uint64
	row := s.conn.QueryRow(ctx, `SELECT count() FROM transactions WHERE id = ?`, id)
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *TransactionStore) query(ctx context.Context, op, query string, args ...any) ([]*domain.TransactionRecord, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func scanTransactions(rows driver.Rows) ([]*domain.TransactionRecord, error) {
	var records []*domain.TransactionRecord

	for rows.Next() {
		var t domain.TransactionRecord
		var action string

		err := rows.Scan(
			&t.ID, &t.MatchID, &t.RuleID, &t.Mint, &t.Name, &t.Symbol, &action,
			&t.Amount, &t.Price, &t.Slippage, &t.Fee, &t.Account,
			&t.Signature, &t.Success, &t.Error, &t.LatencyMs, &t.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction record row: %w", err)
		}

		t.Action = domain.Action(action)
		records = append(records, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction record rows: %w", err)
	}

	return records, nil
}
