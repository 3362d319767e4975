package memory

import (
	"context"
	"sync"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// SafetyStateStore is an in-memory implementation of storage.SafetyStateStore.
type SafetyStateStore struct {
	mu    sync.RWMutex
	state *domain.SafetyState
}

// NewSafetyStateStore creates a new in-memory safety state store.
func NewSafetyStateStore() *SafetyStateStore {
	return &SafetyStateStore{}
}

// Load retrieves the state. Returns ErrNotFound if nothing was saved yet.
func (s *SafetyStateStore) Load(_ context.Context) (*domain.SafetyState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == nil {
		return nil, storage.ErrNotFound
	}
	copy := copyState(*s.state)
	return &copy, nil
}

// Save overwrites the state.
func (s *SafetyStateStore) Save(_ context.Context, st *domain.SafetyState) error {
	if st == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := copyState(*st)
	s.state = &copy
	return nil
}

func copyState(st domain.SafetyState) domain.SafetyState {
	if st.LastExecution != nil {
		v := *st.LastExecution
		st.LastExecution = &v
	}
	return st
}

var _ storage.SafetyStateStore = (*SafetyStateStore)(nil)
