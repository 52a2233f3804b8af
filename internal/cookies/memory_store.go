package cookies

import (
	"context"
	"sync"
)

// MemoryStore keeps jar contents for the lifetime of the process.
type MemoryStore struct {
	mutex   sync.Mutex
	records []Record
	saves   int
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored records.
func (store *MemoryStore) Load(ctx context.Context) ([]Record, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	clone := make([]Record, len(store.records))
	copy(clone, store.records)
	return clone, nil
}

// Save replaces the stored records.
func (store *MemoryStore) Save(ctx context.Context, records []Record) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.records = make([]Record, len(records))
	copy(store.records, records)
	store.saves++
	return nil
}

// Saves reports how many times Save completed.
func (store *MemoryStore) Saves() int {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	return store.saves
}
