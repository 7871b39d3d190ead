package types

import (
	"maps"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
)

// ServiceInstance is a provisioned (simulated) instance. Parameters and Context are opaque to the broker.
// Bindings is only populated on copies handed out by the instance store.
type ServiceInstance struct {
	ID               uuid.UUID      `json:"id"`
	ServiceID        uuid.UUID      `json:"service_id"`
	PlanID           uuid.UUID      `json:"plan_id"`
	OrganizationGUID string         `json:"organization_guid,omitempty"`
	SpaceGUID        string         `json:"space_guid,omitempty"`
	Parameters       map[string]any `json:"parameters,omitempty"`
	Context          map[string]any `json:"context,omitempty"`
	Bindings         []Binding      `json:"bindings,omitempty"`
}

// Binding belongs to exactly one ServiceInstance. Credentials are returned to the platform on bind.
type Binding struct {
	ID           uuid.UUID      `json:"id"`
	ServiceID    string         `json:"service_id,omitempty"`
	PlanID       string         `json:"plan_id,omitempty"`
	AppGUID      string         `json:"app_guid,omitempty"`
	BindResource map[string]any `json:"bind_resource,omitempty"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	Credentials  map[string]any `json:"credentials,omitempty"`
}

var sameInstanceOpts = cmp.Options{
	cmpopts.IgnoreFields(ServiceInstance{}, "Bindings"),
	cmpopts.EquateEmpty(),
}

// SameAs reports whether two instances carry the same identity and provisioning attributes.
// Bindings are not part of the comparison.
func (i ServiceInstance) SameAs(other ServiceInstance) bool {
	return cmp.Equal(i, other, sameInstanceOpts)
}

// Clone returns a copy whose maps and bindings can be mutated without affecting the receiver.
// Nested values inside the opaque maps are shared.
func (i ServiceInstance) Clone() ServiceInstance {
	out := i
	out.Parameters = maps.Clone(i.Parameters)
	out.Context = maps.Clone(i.Context)
	if i.Bindings != nil {
		out.Bindings = make([]Binding, len(i.Bindings))
		for k, b := range i.Bindings {
			out.Bindings[k] = b.Clone()
		}
	}
	return out
}

func (b Binding) Clone() Binding {
	out := b
	out.BindResource = maps.Clone(b.BindResource)
	out.Parameters = maps.Clone(b.Parameters)
	out.Credentials = maps.Clone(b.Credentials)
	return out
}
