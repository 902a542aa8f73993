package cart

import "sync"

// Storage keeps serialized values per client and key, with no expiry.
type Storage interface {
	Get(clientID, key string) (string, bool)
	Set(clientID, key, value string)
	Delete(clientID, key string)
}

type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]map[string]string)}
}

func (m *MemoryStorage) Get(clientID, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[clientID][key]
	return v, ok
}

func (m *MemoryStorage) Set(clientID, key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values[clientID] == nil {
		m.values[clientID] = make(map[string]string)
	}
	m.values[clientID][key] = value
}

func (m *MemoryStorage) Delete(clientID, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values[clientID], key)
	if len(m.values[clientID]) == 0 {
		delete(m.values, clientID)
	}
}
