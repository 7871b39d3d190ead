package flow

import (
	"budgie/internal/ports"
	"budgie/internal/types"
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
)

// Behavior resolves what a tenant's configuration asks of an operation: how long it takes, whether it
// completes asynchronously and whether it fails.
type Behavior struct {
	Configs ports.ConfigStore
	Catalog types.CatalogLookup
}

func NewBehavior(configs ports.ConfigStore, catalog types.CatalogLookup) *Behavior {
	return &Behavior{Configs: configs, Catalog: catalog}
}

// Configure validates the configuration against the catalog and stores it for the tenant, replacing
// any previous one. Nothing is stored when validation fails.
func (b *Behavior) Configure(ctx context.Context, tenantID string, cfg types.BrokerConfig) error {
	if err := cfg.Validate(b.Catalog); err != nil {
		return err
	}
	return b.Configs.PutConfig(ctx, tenantID, cfg)
}

// config returns the tenant configuration, or false when there is none.
func (b *Behavior) config(ctx context.Context, tenantID string) (types.BrokerConfig, bool) {
	cfg, err := b.Configs.GetConfig(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			log.WithError(err).WithField("tenant", tenantID).Error("failed to load broker configuration")
		}
		return types.BrokerConfig{}, false
	}
	return cfg, true
}

// IsAsync is true iff an async duration is configured, whatever its value.
func (b *Behavior) IsAsync(ctx context.Context, tenantID string) bool {
	cfg, ok := b.config(ctx, tenantID)
	return ok && cfg.AsyncDuration != nil
}

// ResolveDelay returns the async duration if configured, else the sync duration, else 0.
func (b *Behavior) ResolveDelay(ctx context.Context, tenantID string) time.Duration {
	cfg, ok := b.config(ctx, tenantID)
	if !ok {
		return 0
	}
	if cfg.AsyncDuration != nil {
		return millis(*cfg.AsyncDuration)
	}
	if cfg.SyncDuration != nil {
		return millis(*cfg.SyncDuration)
	}
	return 0
}

// ShouldFail returns the configured failure status for the operation on the instance, if any rule matches.
func (b *Behavior) ShouldFail(ctx context.Context, tenantID string, op types.OperationType,
	instance types.ServiceInstance) (int, bool) {
	cfg, ok := b.config(ctx, tenantID)
	if !ok || len(cfg.FailConfigurations) == 0 {
		return 0, false
	}
	return FailureStatus(cfg.FailConfigurations, op, instance, b.Catalog)
}
