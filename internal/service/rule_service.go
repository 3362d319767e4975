// Package service holds the operator-facing rule and account management
// shared by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// RuleService validates and persists sniper rules.
type RuleService struct {
	rules storage.RuleStore
	now   func() time.Time
}

// NewRuleService creates a RuleService over store.
func NewRuleService(rules storage.RuleStore) *RuleService {
	return &RuleService{rules: rules, now: time.Now}
}

// Create normalizes and validates r, assigns an ID when missing and stores it.
func (s *RuleService) Create(ctx context.Context, r *domain.Rule) (*domain.Rule, error) {
	r = r.Clone()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.Normalize()
	if err := r.Validate(); err != nil {
		return nil, err
	}

	ts := s.now().UnixMilli()
	r.CreatedAt = ts
	r.UpdatedAt = ts
	if err := s.rules.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create rule %s: %w", r.ID, err)
	}
	return r, nil
}

// Update replaces rule id with r, keeping the original creation time.
func (s *RuleService) Update(ctx context.Context, id string, r *domain.Rule) (*domain.Rule, error) {
	existing, err := s.rules.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get rule %s: %w", id, err)
	}

	r = r.Clone()
	r.ID = id
	r.Normalize()
	if err := r.Validate(); err != nil {
		return nil, err
	}

	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = s.now().UnixMilli()
	if err := s.rules.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("update rule %s: %w", id, err)
	}
	return r, nil
}

// Get returns one rule.
func (s *RuleService) Get(ctx context.Context, id string) (*domain.Rule, error) {
	return s.rules.GetByID(ctx, id)
}

// List returns all rules, oldest first.
func (s *RuleService) List(ctx context.Context) ([]*domain.Rule, error) {
	return s.rules.List(ctx)
}

// SetEnabled toggles a rule.
func (s *RuleService) SetEnabled(ctx context.Context, id string, enabled bool) error {
	return s.rules.SetEnabled(ctx, id, enabled, s.now().UnixMilli())
}

// Delete removes a rule.
func (s *RuleService) Delete(ctx context.Context, id string) error {
	return s.rules.Delete(ctx, id)
}

// ImportResult summarizes an Import.
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// Import upserts rules by ID. Rules without an ID are created.
// It stops at the first invalid rule; earlier rules stay imported.
func (s *RuleService) Import(ctx context.Context, rules []*domain.Rule) (ImportResult, error) {
	var res ImportResult
	for i, r := range rules {
		if r.ID != "" {
			_, err := s.Update(ctx, r.ID, r)
			if err == nil {
				res.Updated++
				continue
			}
			if !errors.Is(err, storage.ErrNotFound) {
				return res, fmt.Errorf("rule %d: %w", i, err)
			}
		}
		if _, err := s.Create(ctx, r); err != nil {
			return res, fmt.Errorf("rule %d: %w", i, err)
		}
		res.Created++
	}
	return res, nil
}
