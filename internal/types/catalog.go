package types

import (
	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
)

// Catalog is the read-only list of service offerings the broker advertises. It is loaded once at startup
// and used to resolve name based fail rules and to validate broker configurations.
type Catalog struct {
	Services []Service `json:"services"`
}

type Service struct {
	ID                   uuid.UUID      `json:"id"`
	Name                 string         `json:"name"`
	Description          string         `json:"description"`
	Bindable             bool           `json:"bindable"`
	PlanUpdateable       bool           `json:"plan_updateable,omitempty"`
	InstancesRetrievable bool           `json:"instances_retrievable,omitempty"`
	BindingsRetrievable  bool           `json:"bindings_retrievable,omitempty"`
	Tags                 []string       `json:"tags,omitempty"`
	Requires             []string       `json:"requires,omitempty"`
	Metadata             map[string]any `json:"metadata,omitempty"`
	Plans                []Plan         `json:"plans"`
}

type Plan struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Free        *bool          `json:"free,omitempty"`
	Bindable    *bool          `json:"bindable,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// CatalogLookup resolves catalog references. *Catalog implements it; tests may stub it.
type CatalogLookup interface {
	ServiceIDByName(name string) (uuid.UUID, bool)
	PlanIDByName(name string) (uuid.UUID, bool)
	HasService(id uuid.UUID) bool
	HasPlan(id uuid.UUID) bool
}

// ParseCatalog decodes a catalog from JSON or YAML and validates it.
func ParseCatalog(data []byte) (*Catalog, error) {
	js, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, Err(ErrInvalidCatalog, err, "")
	}
	var c Catalog
	if err := json.Unmarshal(js, &c); err != nil {
		return nil, Err(ErrInvalidCatalog, err, "")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) Validate() error {
	if len(c.Services) == 0 {
		return Err(ErrInvalidCatalog, nil, "catalog has no services")
	}
	seen := make(map[uuid.UUID]struct{})
	for _, s := range c.Services {
		if s.ID == uuid.Nil || s.Name == "" {
			return Err(ErrInvalidCatalog, nil, "service requires id and name")
		}
		if _, dup := seen[s.ID]; dup {
			return Err(ErrInvalidCatalog, nil, "duplicate id %s", s.ID)
		}
		seen[s.ID] = struct{}{}
		if len(s.Plans) == 0 {
			return Err(ErrInvalidCatalog, nil, "service %q has no plans", s.Name)
		}
		for _, p := range s.Plans {
			if p.ID == uuid.Nil || p.Name == "" {
				return Err(ErrInvalidCatalog, nil, "plan of service %q requires id and name", s.Name)
			}
			if _, dup := seen[p.ID]; dup {
				return Err(ErrInvalidCatalog, nil, "duplicate id %s", p.ID)
			}
			seen[p.ID] = struct{}{}
		}
	}
	return nil
}

// ServiceIDByName returns the id of the first service with the given name.
func (c *Catalog) ServiceIDByName(name string) (uuid.UUID, bool) {
	for _, s := range c.Services {
		if s.Name == name {
			return s.ID, true
		}
	}
	return uuid.Nil, false
}

// PlanIDByName returns the id of the first plan with the given name, across all services.
// Plan names are only unique within a service, so the catalog order decides.
func (c *Catalog) PlanIDByName(name string) (uuid.UUID, bool) {
	for _, s := range c.Services {
		for _, p := range s.Plans {
			if p.Name == name {
				return p.ID, true
			}
		}
	}
	return uuid.Nil, false
}

func (c *Catalog) HasService(id uuid.UUID) bool {
	for _, s := range c.Services {
		if s.ID == id {
			return true
		}
	}
	return false
}

func (c *Catalog) HasPlan(id uuid.UUID) bool {
	for _, s := range c.Services {
		for _, p := range s.Plans {
			if p.ID == id {
				return true
			}
		}
	}
	return false
}
