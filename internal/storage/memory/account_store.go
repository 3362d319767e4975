package memory

import (
	"context"
	"sort"
	"sync"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// AccountStore is an in-memory implementation of storage.AccountStore.
type AccountStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Account // keyed by id
}

// NewAccountStore creates a new in-memory account store.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		data: make(map[string]*domain.Account),
	}
}

// Create adds a new account. Returns ErrDuplicateKey if id exists.
func (s *AccountStore) Create(_ context.Context, a *domain.Account) error {
	if a == nil || a.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *a
	s.data[a.ID] = &copy
	return nil
}

// GetByID retrieves an account by its ID. Returns ErrNotFound if not exists.
func (s *AccountStore) GetByID(_ context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *a
	return &copy, nil
}

// List retrieves all accounts ordered by created_at ASC.
func (s *AccountStore) List(_ context.Context) ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Account, 0, len(s.data))
	for _, a := range s.data {
		copy := *a
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// SetActive toggles an account. Returns ErrNotFound if not exists.
func (s *AccountStore) SetActive(_ context.Context, id string, active bool, updatedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}
	a.Active = active
	a.UpdatedAt = updatedAt
	return nil
}

var _ storage.AccountStore = (*AccountStore)(nil)
