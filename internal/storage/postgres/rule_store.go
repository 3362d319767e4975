package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// RuleStore implements storage.RuleStore using PostgreSQL.
type RuleStore struct {
	pool *Pool
}

// NewRuleStore creates a new RuleStore.
func NewRuleStore(pool *Pool) *RuleStore {
	return &RuleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RuleStore = (*RuleStore)(nil)

const ruleColumns = `
	id, name, enabled,
	symbol_keywords, description_keywords, blacklist, required_creator, required_socials,
	min_liquidity, max_supply,
	amount, slippage_pct, max_fee, accounts, stagger_delay_ms, pool,
	max_daily_spend, cooldown_seconds, require_confirmation,
	created_at, updated_at
`

// Create adds a new rule. Returns ErrDuplicateKey if id exists.
func (s *RuleStore) Create(ctx context.Context, r *domain.Rule) error {
	query := `
		INSERT INTO rules (` + ruleColumns + `) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7, $8,
			$9, $10,
			$11, $12, $13, $14, $15, $16,
			$17, $18, $19,
			$20, $21
		)
	`

	_, err := s.pool.Exec(ctx, query,
		r.ID, r.Name, r.Enabled,
		textArray(r.SymbolKeywords), textArray(r.DescriptionKeywords), textArray(r.Blacklist), r.RequiredCreator, textArray(r.RequiredSocials),
		r.MinLiquidity, r.MaxSupply,
		r.Amount, r.SlippagePct, r.MaxFee, textArray(r.Accounts), r.StaggerDelayMs, string(r.Pool),
		r.MaxDailySpend, r.CooldownSeconds, r.RequireConfirmation,
		r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert rule: %w", err)
	}
	return nil
}

// Update replaces an existing rule. Returns ErrNotFound if not exists.
// created_at is never overwritten.
func (s *RuleStore) Update(ctx context.Context, r *domain.Rule) error {
	query := `
		UPDATE rules SET
			name = $2, enabled = $3,
			symbol_keywords = $4, description_keywords = $5, blacklist = $6,
			required_creator = $7, required_socials = $8,
			min_liquidity = $9, max_supply = $10,
			amount = $11, slippage_pct = $12, max_fee = $13, accounts = $14,
			stagger_delay_ms = $15, pool = $16,
			max_daily_spend = $17, cooldown_seconds = $18, require_confirmation = $19,
			updated_at = $20
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		r.ID, r.Name, r.Enabled,
		textArray(r.SymbolKeywords), textArray(r.DescriptionKeywords), textArray(r.Blacklist),
		r.RequiredCreator, textArray(r.RequiredSocials),
		r.MinLiquidity, r.MaxSupply,
		r.Amount, r.SlippagePct, r.MaxFee, textArray(r.Accounts),
		r.StaggerDelayMs, string(r.Pool),
		r.MaxDailySpend, r.CooldownSeconds, r.RequireConfirmation,
		r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a rule. Returns ErrNotFound if not exists.
func (s *RuleStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a rule by its ID. Returns ErrNotFound if not exists.
func (s *RuleStore) GetByID(ctx context.Context, id string) (*domain.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE id = $1`

	r, err := scanRule(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get rule by id: %w", err)
	}
	return r, nil
}

// List retrieves all rules ordered by created_at ASC.
func (s *RuleStore) List(ctx context.Context) ([]*domain.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules ORDER BY created_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	return scanRules(rows)
}

// ListEnabled retrieves enabled rules ordered by created_at ASC.
func (s *RuleStore) ListEnabled(ctx context.Context) ([]*domain.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE enabled ORDER BY created_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list enabled rules: %w", err)
	}
	defer rows.Close()

	return scanRules(rows)
}

// SetEnabled toggles a rule. Returns ErrNotFound if not exists.
func (s *RuleStore) SetEnabled(ctx context.Context, id string, enabled bool, updatedAt int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE rules SET enabled = $2, updated_at = $3 WHERE id = $1`,
		id, enabled, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("set rule enabled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanRule scans a single row into a Rule.
func scanRule(row pgx.Row) (*domain.Rule, error) {
	var r domain.Rule
	var pool string

	err := row.Scan(
		&r.ID, &r.Name, &r.Enabled,
		&r.SymbolKeywords, &r.DescriptionKeywords, &r.Blacklist, &r.RequiredCreator, &r.RequiredSocials,
		&r.MinLiquidity, &r.MaxSupply,
		&r.Amount, &r.SlippagePct, &r.MaxFee, &r.Accounts, &r.StaggerDelayMs, &pool,
		&r.MaxDailySpend, &r.CooldownSeconds, &r.RequireConfirmation,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Pool = domain.Pool(pool)
	return &r, nil
}

// scanRules scans multiple rows into a slice of Rule.
func scanRules(rows pgx.Rows) ([]*domain.Rule, error) {
	var rules []*domain.Rule

	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule row: %w", err)
		}
		rules = append(rules, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rule rows: %w", err)
	}

	return rules, nil
}

// textArray maps a nil slice to an empty array so NOT NULL columns accept it.
func textArray(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
