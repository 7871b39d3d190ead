package ports

import (
	"budgie/internal/types"
	"context"

	"github.com/google/uuid"
)

// InstanceStore is the registry of provisioned instances and their bindings.
// Implementations MUST be safe for concurrent use and MUST NOT hand out values that alias their state.
type InstanceStore interface {
	ListInstances(ctx context.Context) ([]types.ServiceInstance, error)

	// GetInstance MUST return types.ErrNotFound if the instance does not exist.
	GetInstance(ctx context.Context, id uuid.UUID) (types.ServiceInstance, error)

	// LookupInstance is GetInstance without the error: (instance, false) when absent.
	LookupInstance(ctx context.Context, id uuid.UUID) (types.ServiceInstance, bool)

	// CreateInstance and UpdateInstance are upserts keyed by instance id. UpdateInstance keeps the
	// bindings of an existing instance.
	CreateInstance(ctx context.Context, instance types.ServiceInstance) error
	UpdateInstance(ctx context.Context, instance types.ServiceInstance) error

	// DeleteInstance MUST return types.ErrNotFound if the instance does not exist.
	DeleteInstance(ctx context.Context, id uuid.UUID) error
	DeleteAllInstances(ctx context.Context) error

	// GetBinding MUST return types.ErrNotFound if either the instance or the binding does not exist.
	GetBinding(ctx context.Context, instanceID, bindingID uuid.UUID) (types.Binding, error)

	// Bind MUST return types.ErrConflict if the binding id already exists on the instance and
	// types.ErrNotFound if the instance does not exist. The stored binding is never replaced.
	Bind(ctx context.Context, instanceID uuid.UUID, binding types.Binding) error

	// Unbind MUST return types.ErrNotFound if the instance or binding does not exist.
	Unbind(ctx context.Context, instanceID, bindingID uuid.UUID) error
}
