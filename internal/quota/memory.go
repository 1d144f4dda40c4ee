package quota

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps counters in process memory. It is only suitable for a
// single instance (local runs and tests).
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		now:     time.Now,
	}
}

func (m *MemoryStore) IncrementIfUnder(_ context.Context, identity string, limit int, window time.Duration) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	rec, ok := m.records[identity]
	if !ok || !now.Before(rec.WindowExpiresAt) {
		rec = Record{Identity: identity, WindowExpiresAt: now.Add(window)}
	}

	if rec.Count >= limit {
		return rec.Count, false, nil
	}

	rec.Count++
	m.records[identity] = rec
	return rec.Count, true, nil
}

// Get returns the live record for identity, if any.
func (m *MemoryStore) Get(identity string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[identity]
	if !ok || !m.now().Before(rec.WindowExpiresAt) {
		return Record{}, false
	}
	return rec, true
}
