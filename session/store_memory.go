package session

import "sync"

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory Store. It is the implementation of choice for
// tests and for processes that should never persist credentials to disk.
type MemoryStore struct {
	values map[string]string
	lock   sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (ms *MemoryStore) Get(key string) (string, bool) {
	ms.lock.RLock()
	defer ms.lock.RUnlock()

	value, ok := ms.values[key]
	return value, ok
}

func (ms *MemoryStore) Set(key, value string) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	ms.values[key] = value
	return nil
}

func (ms *MemoryStore) Delete(key string) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	delete(ms.values, key)
	return nil
}

func (ms *MemoryStore) Clear() error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	ms.values = make(map[string]string)
	return nil
}
