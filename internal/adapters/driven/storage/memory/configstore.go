package memory

import (
	"maps"
	"sync"

	"github.com/custodia-labs/permsync/internal/adapters/driven/config/typed"
	"github.com/custodia-labs/permsync/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore is a map-backed driven.ConfigStore for tests and for runs
// without a config file. Nothing is persisted.
type ConfigStore struct {
	typed.Getters

	mu     sync.RWMutex
	values map[string]any
}

// NewConfigStore copies values into a new store.
func NewConfigStore(values map[string]any) *ConfigStore {
	s := &ConfigStore{values: maps.Clone(values)}
	if s.values == nil {
		s.values = map[string]any{}
	}
	s.Getters = typed.New(s.Get)
	return s
}

func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	return nil
}

func (s *ConfigStore) Load() error { return nil }

func (s *ConfigStore) Path() string { return ":memory:" }
