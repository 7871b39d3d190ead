package ports

import (
	"budgie/internal/types"
	"context"
)

// ConfigStore holds the behavior configuration per tenant (configuration id).
// Configurations are validated before they reach the store; the store only keeps them.
type ConfigStore interface {
	// GetConfig returns the configuration for a tenant.
	// MUST return types.ErrNotFound if the tenant has no configuration.
	GetConfig(ctx context.Context, tenantID string) (types.BrokerConfig, error)

	// ListConfigs returns every stored configuration keyed by tenant id.
	ListConfigs(ctx context.Context) (map[string]types.BrokerConfig, error)

	// PutConfig creates or replaces the whole configuration of a tenant.
	PutConfig(ctx context.Context, tenantID string, config types.BrokerConfig) error

	// DeleteConfig MUST return types.ErrNotFound if the tenant has no configuration.
	DeleteConfig(ctx context.Context, tenantID string) error

	// ClearAll purges all configurations. Used in tests only.
	ClearAll(ctx context.Context) error
}
