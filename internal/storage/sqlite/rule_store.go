package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// RuleStore implements storage.RuleStore using SQLite.
type RuleStore struct {
	db *DB
}

// NewRuleStore creates a new RuleStore.
func NewRuleStore(db *DB) *RuleStore {
	return &RuleStore{db: db}
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

// ruleLists holds the JSON-encoded list columns of a rule.
type ruleLists struct {
	symbol, description, blacklist, socials, accounts string
}

func encodeRuleLists(r *domain.Rule) (ruleLists, error) {
	var l ruleLists
	var err error
	for _, f := range []struct {
		dst *string
		src []string
	}{
		{&l.symbol, r.SymbolKeywords},
		{&l.description, r.DescriptionKeywords},
		{&l.blacklist, r.Blacklist},
		{&l.socials, r.RequiredSocials},
		{&l.accounts, r.Accounts},
	} {
		if *f.dst, err = encodeList(f.src); err != nil {
			return l, fmt.Errorf("encode rule list: %w", err)
		}
	}
	return l, nil
}

// Create adds a new rule. Returns ErrDuplicateKey if id exists.
func (s *RuleStore) Create(ctx context.Context, r *domain.Rule) error {
	l, err := encodeRuleLists(r)
	if err != nil {
		return err
	}

	query := `INSERT INTO rules (` + ruleColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		r.ID, r.Name, r.Enabled,
		l.symbol, l.description, l.blacklist, r.RequiredCreator, l.socials,
		r.MinLiquidity, r.MaxSupply,
		r.Amount, r.SlippagePct, r.MaxFee, l.accounts, r.StaggerDelayMs, string(r.Pool),
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
func (s *RuleStore) Update(ctx context.Context, r *domain.Rule) error {
	l, err := encodeRuleLists(r)
	if err != nil {
		return err
	}

	query := `
		UPDATE rules SET
			name = ?, enabled = ?,
			symbol_keywords = ?, description_keywords = ?, blacklist = ?,
			required_creator = ?, required_socials = ?,
			min_liquidity = ?, max_supply = ?,
			amount = ?, slippage_pct = ?, max_fee = ?, accounts = ?,
			stagger_delay_ms = ?, pool = ?,
			max_daily_spend = ?, cooldown_seconds = ?, require_confirmation = ?,
			updated_at = ?
		WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		r.Name, r.Enabled,
		l.symbol, l.description, l.blacklist,
		r.RequiredCreator, l.socials,
		r.MinLiquidity, r.MaxSupply,
		r.Amount, r.SlippagePct, r.MaxFee, l.accounts,
		r.StaggerDelayMs, string(r.Pool),
		r.MaxDailySpend, r.CooldownSeconds, r.RequireConfirmation,
		r.UpdatedAt,
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a rule. Returns ErrNotFound if not exists.
func (s *RuleStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return requireAffected(res)
}

// GetByID retrieves a rule by its ID. Returns ErrNotFound if not exists.
func (s *RuleStore) GetByID(ctx context.Context, id string) (*domain.Rule, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = ?`, id)

	r, err := scanRule(row)
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
	return s.list(ctx, `SELECT `+ruleColumns+` FROM rules ORDER BY created_at ASC, id ASC`)
}

// ListEnabled retrieves enabled rules ordered by created_at ASC.
func (s *RuleStore) ListEnabled(ctx context.Context) ([]*domain.Rule, error) {
	return s.list(ctx, `SELECT `+ruleColumns+` FROM rules WHERE enabled = 1 ORDER BY created_at ASC, id ASC`)
}

// SetEnabled toggles a rule. Returns ErrNotFound if not exists.
func (s *RuleStore) SetEnabled(ctx context.Context, id string, enabled bool, updatedAt int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rules SET enabled = ?, updated_at = ? WHERE id = ?`,
		enabled, updatedAt, id,
	)
	if err != nil {
		return fmt.Errorf("set rule enabled: %w", err)
	}
	return requireAffected(res)
}

func (s *RuleStore) list(ctx context.Context, query string) ([]*domain.Rule, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

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

type scanner interface {
	Scan(dest ...any) error
}

func scanRule(row scanner) (*domain.Rule, error) {
	var r domain.Rule
	var l ruleLists
	var creator sql.NullString
	var pool string

	err := row.Scan(
		&r.ID, &r.Name, &r.Enabled,
		&l.symbol, &l.description, &l.blacklist, &creator, &l.socials,
		&r.MinLiquidity, &r.MaxSupply,
		&r.Amount, &r.SlippagePct, &r.MaxFee, &l.accounts, &r.StaggerDelayMs, &pool,
		&r.MaxDailySpend, &r.CooldownSeconds, &r.RequireConfirmation,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, f := range []struct {
		dst *[]string
		src string
	}{
		{&r.SymbolKeywords, l.symbol},
		{&r.DescriptionKeywords, l.description},
		{&r.Blacklist, l.blacklist},
		{&r.RequiredSocials, l.socials},
		{&r.Accounts, l.accounts},
	} {
		if *f.dst, err = decodeList(f.src); err != nil {
			return nil, fmt.Errorf("decode rule list: %w", err)
		}
	}

	if creator.Valid {
		r.RequiredCreator = &creator.String
	}
	r.Pool = domain.Pool(pool)
	return &r, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
