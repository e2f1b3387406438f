package sessions

import (
	"context"
	"sync"
	"time"
)

// sweepInterval bounds how often Create scans for expired sessions.
const sweepInterval = time.Minute

// MemoryRepository keeps sessions in process memory. Used when no Redis or
// Mongo is configured, and in tests. Expired sessions are dropped by a
// sweep that piggybacks on Create.
type MemoryRepository struct {
	mu        sync.RWMutex
	store     map[string]*Session
	now       func() time.Time
	lastSweep time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: make(map[string]*Session), now: time.Now}
}

func (m *MemoryRepository) Create(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now().UTC()
	if now.Sub(m.lastSweep) >= sweepInterval {
		m.pruneLocked(now)
		m.lastSweep = now
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *MemoryRepository) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.store[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (m *MemoryRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, id)
	return nil
}

// PruneExpired removes every session expired at now and returns how many
// were removed.
func (m *MemoryRepository) PruneExpired(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pruneLocked(now)
}

func (m *MemoryRepository) pruneLocked(now time.Time) int {
	n := 0
	for id, s := range m.store {
		if s.Expired(now) {
			delete(m.store, id)
			n++
		}
	}
	return n
}

// Len returns the number of stored sessions.
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}
