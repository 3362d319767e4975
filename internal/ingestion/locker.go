package ingestion

import (
	"context"
	"sync"
	"time"

	"solana-sniper/internal/domain"
)

// Locker reserves a key for the duration of an execution.
// Acquire returns domain.ErrLockHeld when another holder has the key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// MemoryLocker is a process-local Locker with TTL expiry.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]memoryLock
	seq  uint64
	now  func() time.Time
}

type memoryLock struct {
	token     uint64
	expiresAt time.Time
}

var _ Locker = (*MemoryLocker)(nil)

// NewMemoryLocker creates an empty MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]memoryLock), now: time.Now}
}

// Acquire implements Locker. The returned unlock is safe to call more than once
// and never releases a lock re-acquired by someone else after expiry.
func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cur, ok := l.held[key]; ok && now.Before(cur.expiresAt) {
		return nil, domain.ErrLockHeld
	}

	l.seq++
	token := l.seq
	l.held[key] = memoryLock{token: token, expiresAt: now.Add(ttl)}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()

			if cur, ok := l.held[key]; ok && cur.token == token {
				delete(l.held, key)
			}
		})
	}, nil
}
