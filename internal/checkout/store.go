package checkout

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by a SnapshotStore for a missing or expired key.
var ErrNotFound = errors.New("snapshot not found")

// SnapshotStore is a short-lived key-value store. Records vanish after their
// TTL.
type SnapshotStore interface {
	Save(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

type memoryRecord struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is a process-local SnapshotStore, used when Redis is disabled.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]memoryRecord
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]memoryRecord),
		now:     time.Now,
	}
}

func (m *MemoryStore) Save(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = memoryRecord{
		data:      append([]byte(nil), data...),
		expiresAt: m.now().Add(ttl),
	}
	return nil
}

func (m *MemoryStore) Load(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	if !m.now().Before(rec.expiresAt) {
		delete(m.records, key)
		return nil, ErrNotFound
	}
	return append([]byte(nil), rec.data...), nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

// Purge drops expired records and returns how many were removed.
func (m *MemoryStore) Purge() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for k, rec := range m.records {
		if !now.Before(rec.expiresAt) {
			delete(m.records, k)
			n++
		}
	}
	return n
}
