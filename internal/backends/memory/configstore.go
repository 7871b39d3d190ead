package memory

import (
	"budgie/internal/types"
	"context"
	"maps"
	"sync"
)

// ConfigStore keeps broker configurations for the process lifetime.
type ConfigStore struct {
	mu      sync.RWMutex
	configs map[string]types.BrokerConfig
}

func NewConfigStore() *ConfigStore {
	return &ConfigStore{configs: make(map[string]types.BrokerConfig)}
}

func (s *ConfigStore) GetConfig(_ context.Context, tenantID string) (types.BrokerConfig, error) {
	s.mu.RLock()
	cfg, ok := s.configs[tenantID]
	s.mu.RUnlock()
	if !ok {
		return types.BrokerConfig{}, types.Err(types.ErrNotFound, nil, "configuration %q", tenantID)
	}
	return cfg, nil
}

func (s *ConfigStore) ListConfigs(_ context.Context) (map[string]types.BrokerConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.configs), nil
}

// PutConfig stores the configuration as given. Callers validate against the catalog first.
func (s *ConfigStore) PutConfig(_ context.Context, tenantID string, config types.BrokerConfig) error {
	s.mu.Lock()
	s.configs[tenantID] = config
	s.mu.Unlock()
	return nil
}

func (s *ConfigStore) DeleteConfig(_ context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[tenantID]; !ok {
		return types.Err(types.ErrNotFound, nil, "configuration %q", tenantID)
	}
	delete(s.configs, tenantID)
	return nil
}

func (s *ConfigStore) ClearAll(_ context.Context) error {
	s.mu.Lock()
	clear(s.configs)
	s.mu.Unlock()
	return nil
}
