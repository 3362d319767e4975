package memory

import (
	"context"
	"sort"
	"sync"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// TransactionStore is an in-memory implementation of storage.TransactionStore.
type TransactionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TransactionRecord // keyed by id
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		data: make(map[string]*domain.TransactionRecord),
	}
}

// Insert adds a new record. Returns ErrDuplicateKey if id exists.
func (s *TransactionStore) Insert(_ context.Context, t *domain.TransactionRecord) error {
	if t == nil || t.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *t
	s.data[t.ID] = &copy
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetByID(_ context.Context, id string) (*domain.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *t
	return &copy, nil
}

// GetByMatchID retrieves all records for a match, ordered by timestamp ASC.
func (s *TransactionStore) GetByMatchID(_ context.Context, matchID string) ([]*domain.TransactionRecord, error) {
	return s.filterAsc(func(t *domain.TransactionRecord) bool { return t.MatchID == matchID }), nil
}

// GetByMint retrieves all records for a mint, ordered by timestamp ASC.
func (s *TransactionStore) GetByMint(_ context.Context, mint string) ([]*domain.TransactionRecord, error) {
	return s.filterAsc(func(t *domain.TransactionRecord) bool { return t.Mint == mint }), nil
}

// GetByTimeRange retrieves records within [start, end] (inclusive), ordered by timestamp ASC.
func (s *TransactionStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.TransactionRecord, error) {
	return s.filterAsc(func(t *domain.TransactionRecord) bool {
		return t.Timestamp >= start && t.Timestamp <= end
	}), nil
}

// ListRecent retrieves the newest records, ordered by timestamp DESC.
func (s *TransactionStore) ListRecent(_ context.Context, limit int) ([]*domain.TransactionRecord, error) {
	all := s.filterAsc(func(*domain.TransactionRecord) bool { return true })

	result := make([]*domain.TransactionRecord, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if limit > 0 && len(result) == limit {
			break
		}
		result = append(result, all[i])
	}
	return result, nil
}

func (s *TransactionStore) filterAsc(keep func(*domain.TransactionRecord) bool) []*domain.TransactionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransactionRecord
	for _, t := range s.data {
		if keep(t) {
			copy := *t
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp < result[j].Timestamp
		}
		return result[i].ID < result[j].ID
	})
	return result
}

var _ storage.TransactionStore = (*TransactionStore)(nil)
