package browser

import "sync"

// Storage is a clearable key/value area such as localStorage or sessionStorage.
type Storage interface {
	Clear() error
}

// MemoryStorage is a process-local Storage.
type MemoryStorage struct {
	mutex  sync.Mutex
	values map[string]string
}

// NewMemoryStorage constructs an empty storage area.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

// SetItem stores value under key.
func (storage *MemoryStorage) SetItem(key string, value string) {
	storage.mutex.Lock()
	defer storage.mutex.Unlock()
	storage.values[key] = value
}

// GetItem returns the value stored under key.
func (storage *MemoryStorage) GetItem(key string) (string, bool) {
	storage.mutex.Lock()
	defer storage.mutex.Unlock()
	value, ok := storage.values[key]
	return value, ok
}

// Len reports the number of stored keys.
func (storage *MemoryStorage) Len() int {
	storage.mutex.Lock()
	defer storage.mutex.Unlock()
	return len(storage.values)
}

// Clear removes every key.
func (storage *MemoryStorage) Clear() error {
	storage.mutex.Lock()
	defer storage.mutex.Unlock()
	storage.values = make(map[string]string)
	return nil
}
