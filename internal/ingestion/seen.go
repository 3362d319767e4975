package ingestion

import "solana-sniper/internal/approval"

// seenSet remembers the most recent match IDs, evicting the oldest first.
// Not safe for concurrent use; the runner loop owns it.
type seenSet struct {
	ids   map[string]struct{}
	order *approval.Ring[string]
}

func newSeenSet(capacity int) *seenSet {
	return &seenSet{
		ids:   make(map[string]struct{}, capacity),
		order: approval.NewRing[string](capacity),
	}
}

func (s *seenSet) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Add records id. Returns false if it was already present.
func (s *seenSet) Add(id string) bool {
	if s.Contains(id) {
		return false
	}
	if evicted, ok := s.order.Push(id); ok {
		delete(s.ids, evicted)
	}
	s.ids[id] = struct{}{}
	return true
}

func (s *seenSet) Len() int {
	return len(s.ids)
}
