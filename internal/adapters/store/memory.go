package store

import (
	"context"
	"sort"
	"sync"

	"github.com/ghalamif/BeaconFlow/internal/domain"
	"github.com/ghalamif/BeaconFlow/internal/ports"
)

// MemoryStore keeps the latest record per key in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string]domain.ResultRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]domain.ResultRecord)}
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Publish(_ context.Context, key string, rec *domain.ResultRecord) error {
	if rec == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[key] = *rec
	return nil
}

func (m *MemoryStore) Consume(_ context.Context, key string) (*domain.ResultRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.recs[key]
	if !ok {
		return nil, false, nil
	}
	return &rec, true, nil
}

func (m *MemoryStore) Keys(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.recs))
	for k := range m.recs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) Clear(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs, key)
	return nil
}

var _ ports.ResultChannel = (*MemoryStore)(nil)
