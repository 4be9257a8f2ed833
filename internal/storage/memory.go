package storage

import "sync"

// MemoryMedium is an in-memory Medium used in tests and as a scratch backend.
type MemoryMedium struct {
	mu      sync.RWMutex
	records map[string]string
}

// NewMemoryMedium creates an empty in-memory medium
func NewMemoryMedium() *MemoryMedium {
	return &MemoryMedium{records: make(map[string]string)}
}

// Get returns the record for key
func (m *MemoryMedium) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.records[key]
	return value, ok, nil
}

// Set stores the record for key
func (m *MemoryMedium) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[key] = value
	return nil
}

// Delete removes the record for key
func (m *MemoryMedium) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, key)
	return nil
}

// Close is a no-op for the in-memory medium
func (m *MemoryMedium) Close() error {
	return nil
}
