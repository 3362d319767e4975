package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MinKeywordLength is the shortest keyword a rule may carry.
const MinKeywordLength = 2

// ErrInvalidRule is wrapped by Rule.Validate failures.
var ErrInvalidRule = errors.New("invalid rule")

// Rule is a sniper configuration: match criteria, trading parameters and safety limits.
type Rule struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`

	// Match criteria
	SymbolKeywords      []string `json:"symbol_keywords"`
	DescriptionKeywords []string `json:"description_keywords"`
	Blacklist           []string `json:"blacklist"`
	RequiredCreator     *string  `json:"required_creator,omitempty"`
	RequiredSocials     []string `json:"required_socials"`
	MinLiquidity        float64  `json:"min_liquidity"` // SOL
	MaxSupply           float64  `json:"max_supply"`    // required, > 0

	// Trading parameters
	Amount         float64  `json:"amount"`       // SOL per account
	SlippagePct    float64  `json:"slippage_pct"` // 0-100
	MaxFee         float64  `json:"max_fee"`      // priority fee, SOL
	Accounts       []string `json:"accounts"`     // ordered account IDs
	StaggerDelayMs int64    `json:"stagger_delay_ms"`
	Pool           Pool     `json:"pool"`

	// Safety parameters
	MaxDailySpend       float64 `json:"max_daily_spend"` // SOL, required, > 0
	CooldownSeconds     int64   `json:"cooldown_seconds"`
	RequireConfirmation bool    `json:"require_confirmation"`

	CreatedAt int64 `json:"created_at"` // ms
	UpdatedAt int64 `json:"updated_at"` // ms
}

// StaggerDelay returns the pause inserted between account attempts.
func (r *Rule) StaggerDelay() time.Duration {
	return time.Duration(r.StaggerDelayMs) * time.Millisecond
}

// Cooldown returns the minimum time between executions.
func (r *Rule) Cooldown() time.Duration {
	return time.Duration(r.CooldownSeconds) * time.Second
}

// HasKeywords reports whether any symbol or description keyword is configured.
func (r *Rule) HasKeywords() bool {
	return len(r.SymbolKeywords) > 0 || len(r.DescriptionKeywords) > 0
}

// Normalize lowercases and trims term sets, drops empty terms and keywords
// shorter than MinKeywordLength, and removes duplicates keeping first occurrence.
func (r *Rule) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.SymbolKeywords = normalizeTerms(r.SymbolKeywords, MinKeywordLength)
	r.DescriptionKeywords = normalizeTerms(r.DescriptionKeywords, MinKeywordLength)
	r.Blacklist = normalizeTerms(r.Blacklist, 1)

	socials := make([]string, 0, len(r.RequiredSocials))
	seen := make(map[string]struct{}, len(r.RequiredSocials))
	for _, s := range r.RequiredSocials {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		socials = append(socials, s)
	}
	r.RequiredSocials = socials

	if r.RequiredCreator != nil {
		c := strings.TrimSpace(*r.RequiredCreator)
		if c == "" {
			r.RequiredCreator = nil
		} else {
			r.RequiredCreator = &c
		}
	}
	if r.Pool == "" {
		r.Pool = PoolPump
	}
}

func normalizeTerms(terms []string, minLen int) []string {
	out := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if len([]rune(t)) < minLen {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Validate checks rule invariants. Call Normalize first.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRule)
	}
	if r.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRule)
	}
	if r.SlippagePct < 0 || r.SlippagePct > 100 {
		return fmt.Errorf("%w: slippage must be within [0, 100]", ErrInvalidRule)
	}
	if r.MaxFee < 0 || r.MinLiquidity < 0 || r.MaxSupply < 0 || r.MaxDailySpend < 0 {
		return fmt.Errorf("%w: limits must not be negative", ErrInvalidRule)
	}
	if r.MaxSupply == 0 || r.MaxDailySpend == 0 {
		return fmt.Errorf("%w: max_supply and max_daily_spend must be set", ErrInvalidRule)
	}
	if r.StaggerDelayMs < 0 || r.CooldownSeconds < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidRule)
	}
	if !r.Pool.IsValid() {
		return fmt.Errorf("%w: unknown pool %q", ErrInvalidRule, r.Pool)
	}
	for _, set := range [][]string{r.SymbolKeywords, r.DescriptionKeywords, r.Blacklist, r.RequiredSocials, r.Accounts} {
		for _, t := range set {
			if strings.TrimSpace(t) == "" {
				return fmt.Errorf("%w: empty term", ErrInvalidRule)
			}
		}
	}
	for _, k := range append(append([]string{}, r.SymbolKeywords...), r.DescriptionKeywords...) {
		if len([]rune(k)) < MinKeywordLength {
			return fmt.Errorf("%w: keyword %q shorter than %d characters", ErrInvalidRule, k, MinKeywordLength)
		}
	}
	return nil
}

// Clone returns a deep copy so callers can hand rules across goroutines.
func (r *Rule) Clone() *Rule {
	c := *r
	c.SymbolKeywords = append([]string(nil), r.SymbolKeywords...)
	c.DescriptionKeywords = append([]string(nil), r.DescriptionKeywords...)
	c.Blacklist = append([]string(nil), r.Blacklist...)
	c.RequiredSocials = append([]string(nil), r.RequiredSocials...)
	c.Accounts = append([]string(nil), r.Accounts...)
	if r.RequiredCreator != nil {
		v := *r.RequiredCreator
		c.RequiredCreator = &v
	}
	return &c
}
