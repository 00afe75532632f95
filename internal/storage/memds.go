package storage

import (
	"sort"
	"sync"
)

// memDatastore implements Datastore entirely in memory, with no persistence
// across restarts. Adapted from the flat key-value MemoryStore pattern,
// generalized here to byte keys and a prefix Scan so the storage engine can
// walk its logical tables (tables.go) without the datastore knowing they
// exist.
//
// Suitable for tests, ephemeral nodes, and small working sets; everything is
// bounded by available heap and lost on process exit.
type memDatastore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory returns a Datastore backed by an in-memory map.
func NewMemory() Datastore {
	return &memDatastore{data: make(map[string][]byte)}
}

func (m *memDatastore) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}

	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

func (m *memDatastore) Put(key []byte, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[string(key)] = stored
	return nil
}

func (m *memDatastore) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, string(key))
	return nil
}

// Scan takes a snapshot of matching keys under the read lock, sorts them,
// then invokes fn without holding the lock — fn is free to call back into
// the datastore (the GC sweep does) without deadlocking.
func (m *memDatastore) Scan(prefix []byte, fn func(key, value []byte) bool) error {
	m.mu.RLock()
	matched := make([]string, 0)
	for k := range m.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == string(prefix) {
			matched = append(matched, k)
		}
	}
	sort.Strings(matched)
	values := make([][]byte, len(matched))
	for i, k := range matched {
		values[i] = m.data[k]
	}
	m.mu.RUnlock()

	for i, k := range matched {
		if !fn([]byte(k), values[i]) {
			break
		}
	}
	return nil
}

func (m *memDatastore) Close() error { return nil }
