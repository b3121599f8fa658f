package session

import (
	"log/slog"
	"sync"

	"love-piece/internal/logging"
)

// Manager hands out one Store per key over a shared KV, so concurrent
// updates for the same key are serialised by that Store.
type Manager struct {
	mu     sync.Mutex
	kv     KV
	stores map[string]*Store
	logger *slog.Logger
}

func NewManager(kv KV, logger *slog.Logger) *Manager {
	if kv == nil {
		kv = NewMemoryKV()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{
		kv:     kv,
		stores: make(map[string]*Store),
		logger: logger,
	}
}

func (m *Manager) For(key string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stores[key]; ok {
		return s
	}
	s := NewStore(Options{KV: m.kv, Key: key, Logger: m.logger.With("session", key)})
	m.stores[key] = s
	return s
}

// Forget drops the cached Store for key. Stored data is not touched.
func (m *Manager) Forget(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stores, key)
}
