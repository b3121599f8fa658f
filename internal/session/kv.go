package session

import (
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by KV.Read when nothing is stored under the key.
var ErrNotFound = errors.New("session: not found")

// KV is the storage capability a Store writes through. Each call must be
// atomic for its key.
type KV interface {
	Read(key string) ([]byte, error)
	Write(key string, value []byte) error
	Clear(key string) error
}

type memoryEntry struct {
	value     []byte
	updatedAt time.Time
}

// MemoryKV keeps values in process memory.
type MemoryKV struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryKV) Read(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (m *MemoryKV) Write(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{
		value:     append([]byte(nil), value...),
		updatedAt: m.now(),
	}
	return nil
}

func (m *MemoryKV) Clear(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

// Prune drops entries not written since before and returns their keys.
func (m *MemoryKV) Prune(before time.Time) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	for key, e := range m.entries {
		if e.updatedAt.Before(before) {
			delete(m.entries, key)
			removed = append(removed, key)
		}
	}
	return removed
}

func (m *MemoryKV) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
