package kvstore

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// errInjected is returned by a MemoryStore whose failure switches are on.
var errInjected = errors.New("kvstore: injected failure")

// MemoryStore keeps values in a map. FailReads and FailWrites let tests
// simulate a broken backend (quota exceeded, unreadable document).
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]string
	closed bool

	FailReads  bool
	FailWrites bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", false, ErrClosed
	}
	if m.FailReads {
		return "", false, errInjected
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.FailWrites {
		return errInjected
	}
	m.data[key] = value
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.FailWrites {
		return errInjected
	}
	delete(m.data, key)
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// SetFailures toggles the failure switches under the store lock.
func (m *MemoryStore) SetFailures(reads, writes bool) {
	m.mu.Lock()
	m.FailReads = reads
	m.FailWrites = writes
	m.mu.Unlock()
}

// Keys returns the stored keys in sorted order.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
