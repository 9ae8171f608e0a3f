package store

import (
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// MemStore is an in-memory KV implementation. It backs tests throughout
// the engine and serves as a throwaway device store for hosts that do not
// want persistence (values are lost when the process exits).
type MemStore struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage
	logger *slog.Logger
}

// NewMemStore creates an empty in-memory store.
// If logger is nil, the default logger is used.
func NewMemStore(logger *slog.Logger) *MemStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemStore{
		values: make(map[string]json.RawMessage),
		logger: logger.With(slog.String("component", "mem_store")),
	}
}

// Ensure MemStore implements the KV interface.
var _ KV = (*MemStore)(nil)

// Get implements KV.Get.
func (s *MemStore) Get(key string) (json.RawMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return v, ok
}

// Set implements KV.Set. Marshal failures are logged and the previous
// value is left untouched, keeping the operation total for callers.
func (s *MemStore) Set(key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("failed to marshal value, keeping previous",
			"key", key,
			"error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = raw
}

// Keys implements KV.Keys.
func (s *MemStore) Keys(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
