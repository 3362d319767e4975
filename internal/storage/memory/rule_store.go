package memory

import (
	"context"
	"sort"
	"sync"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// RuleStore is an in-memory implementation of storage.RuleStore.
type RuleStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Rule // keyed by id
}

// NewRuleStore creates a new in-memory rule store.
func NewRuleStore() *RuleStore {
	return &RuleStore{
		data: make(map[string]*domain.Rule),
	}
}

// Create adds a new rule. Returns ErrDuplicateKey if id exists.
func (s *RuleStore) Create(_ context.Context, r *domain.Rule) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.ID] = r.Clone()
	return nil
}

// Update replaces an existing rule. Returns ErrNotFound if not exists.
func (s *RuleStore) Update(_ context.Context, r *domain.Rule) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data[r.ID]
	if !exists {
		return storage.ErrNotFound
	}

	updated := r.Clone()
	updated.CreatedAt = existing.CreatedAt
	s.data[r.ID] = updated
	return nil
}

// Delete removes a rule. Returns ErrNotFound if not exists.
func (s *RuleStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[id]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, id)
	return nil
}

// GetByID retrieves a rule by its ID. Returns ErrNotFound if not exists.
func (s *RuleStore) GetByID(_ context.Context, id string) (*domain.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return r.Clone(), nil
}

// List retrieves all rules ordered by created_at ASC.
func (s *RuleStore) List(_ context.Context) ([]*domain.Rule, error) {
	return s.collect(func(*domain.Rule) bool { return true }), nil
}

// ListEnabled retrieves enabled rules ordered by created_at ASC.
func (s *RuleStore) ListEnabled(_ context.Context) ([]*domain.Rule, error) {
	return s.collect(func(r *domain.Rule) bool { return r.Enabled }), nil
}

// SetEnabled toggles a rule. Returns ErrNotFound if not exists.
func (s *RuleStore) SetEnabled(_ context.Context, id string, enabled bool, updatedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}
	r.Enabled = enabled
	r.UpdatedAt = updatedAt
	return nil
}

func (s *RuleStore) collect(keep func(*domain.Rule) bool) []*domain.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Rule
	for _, r := range s.data {
		if keep(r) {
			result = append(result, r.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].ID < result[j].ID
	})
	return result
}

var _ storage.RuleStore = (*RuleStore)(nil)
