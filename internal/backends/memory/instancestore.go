package memory

import (
	"budgie/internal/types"
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type instanceEntry struct {
	instance types.ServiceInstance
	bindings map[uuid.UUID]types.Binding
}

// InstanceStore is the in-process registry of instances and bindings. Every value crossing its boundary
// is cloned, so callers can keep and mutate what they passed in or got back.
type InstanceStore struct {
	mu        sync.RWMutex
	instances map[uuid.UUID]*instanceEntry
}

func NewInstanceStore() *InstanceStore {
	return &InstanceStore{instances: make(map[uuid.UUID]*instanceEntry)}
}

// ListInstances returns all instances ordered by id.
func (s *InstanceStore) ListInstances(_ context.Context) ([]types.ServiceInstance, error) {
	s.mu.RLock()
	out := make([]types.ServiceInstance, 0, len(s.instances))
	for _, e := range s.instances {
		out = append(out, e.snapshot())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *InstanceStore) GetInstance(ctx context.Context, id uuid.UUID) (types.ServiceInstance, error) {
	inst, ok := s.LookupInstance(ctx, id)
	if !ok {
		return types.ServiceInstance{}, types.Err(types.ErrNotFound, nil, "service instance %q", id)
	}
	return inst, nil
}

func (s *InstanceStore) LookupInstance(_ context.Context, id uuid.UUID) (types.ServiceInstance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.instances[id]
	if !ok {
		return types.ServiceInstance{}, false
	}
	return e.snapshot(), true
}

// CreateInstance replaces any instance with the same id, bindings included.
func (s *InstanceStore) CreateInstance(_ context.Context, instance types.ServiceInstance) error {
	e := &instanceEntry{
		instance: stripBindings(instance),
		bindings: make(map[uuid.UUID]types.Binding),
	}
	s.mu.Lock()
	s.instances[instance.ID] = e
	s.mu.Unlock()
	return nil
}

func (s *InstanceStore) UpdateInstance(_ context.Context, instance types.ServiceInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.instances[instance.ID]; ok {
		e.instance = stripBindings(instance)
		return nil
	}
	s.instances[instance.ID] = &instanceEntry{
		instance: stripBindings(instance),
		bindings: make(map[uuid.UUID]types.Binding),
	}
	return nil
}

func (s *InstanceStore) DeleteInstance(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instances[id]; !ok {
		return types.Err(types.ErrNotFound, nil, "service instance %q", id)
	}
	delete(s.instances, id)
	return nil
}

func (s *InstanceStore) DeleteAllInstances(_ context.Context) error {
	s.mu.Lock()
	clear(s.instances)
	s.mu.Unlock()
	return nil
}

func (s *InstanceStore) GetBinding(_ context.Context, instanceID, bindingID uuid.UUID) (types.Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.instances[instanceID]
	if !ok {
		return types.Binding{}, types.Err(types.ErrNotFound, nil, "service instance %q", instanceID)
	}
	b, ok := e.bindings[bindingID]
	if !ok {
		return types.Binding{}, types.Err(types.ErrNotFound, nil, "binding %q", bindingID)
	}
	return b.Clone(), nil
}

func (s *InstanceStore) Bind(_ context.Context, instanceID uuid.UUID, binding types.Binding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.instances[instanceID]
	if !ok {
		return types.Err(types.ErrNotFound, nil, "service instance %q", instanceID)
	}
	if _, exists := e.bindings[binding.ID]; exists {
		return types.Err(types.ErrConflict, nil, "binding %q already exists", binding.ID)
	}
	e.bindings[binding.ID] = binding.Clone()
	return nil
}

func (s *InstanceStore) Unbind(_ context.Context, instanceID, bindingID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.instances[instanceID]
	if !ok {
		return types.Err(types.ErrNotFound, nil, "service instance %q", instanceID)
	}
	if _, exists := e.bindings[bindingID]; !exists {
		return types.Err(types.ErrNotFound, nil, "binding %q", bindingID)
	}
	delete(e.bindings, bindingID)
	return nil
}

// snapshot must be called with the store lock held.
func (e *instanceEntry) snapshot() types.ServiceInstance {
	out := e.instance.Clone()
	if len(e.bindings) == 0 {
		return out
	}
	out.Bindings = make([]types.Binding, 0, len(e.bindings))
	for _, b := range e.bindings {
		out.Bindings = append(out.Bindings, b.Clone())
	}
	sort.Slice(out.Bindings, func(i, j int) bool {
		return out.Bindings[i].ID.String() < out.Bindings[j].ID.String()
	})
	return out
}

func stripBindings(instance types.ServiceInstance) types.ServiceInstance {
	out := instance.Clone()
	out.Bindings = nil
	return out
}
