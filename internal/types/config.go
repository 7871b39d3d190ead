package types

import (
	"github.com/google/uuid"
	"github.com/jmespath/go-jmespath"
)

// OperationType names the broker operation a fail rule applies to.
type OperationType string

const (
	OperationCreate OperationType = "create"
	OperationUpdate OperationType = "update"
	OperationDelete OperationType = "delete"
	OperationBind   OperationType = "bind"
	OperationUnbind OperationType = "unbind"

	MinFailStatus = 400
	MaxFailStatus = 600 // exclusive
)

func (o OperationType) Valid() bool {
	switch o {
	case OperationCreate, OperationUpdate, OperationDelete, OperationBind, OperationUnbind:
		return true
	}
	return false
}

// BrokerConfig is the behavior configuration stored per tenant (configuration id). It is replaced as a
// whole by the operator; there is no partial update.
// AsyncDuration, when set, makes every operation asynchronous and is the delay in milliseconds before the
// background task completes. A value of 0 still means async.
// SyncDuration is the simulated latency in milliseconds for synchronous operations. It is ignored when
// AsyncDuration is set.
// FailConfigurations are evaluated in order; the first matching rule decides the failure status.
type BrokerConfig struct {
	AsyncDuration      *int       `json:"asyncDuration,omitempty"`
	SyncDuration       *int       `json:"syncDuration,omitempty"`
	FailConfigurations []FailRule `json:"failConfigurations,omitempty"`
}

// FailRule makes operations of OperationType fail with Status.
// A nil list leaves its dimension unconstrained. An empty, non-nil list constrains it to nothing, so the
// rule never matches on that dimension. FailAll matches every instance regardless of the other fields.
type FailRule struct {
	OperationType OperationType `json:"operationType"`
	Status        int           `json:"status"`
	FailAll       bool          `json:"failAll,omitempty"`
	InstanceIDs   []uuid.UUID   `json:"instanceIds"`
	PlanIDs       []uuid.UUID   `json:"planIds"`
	ServiceIDs    []uuid.UUID   `json:"serviceIds"`
	PlanNames     []string      `json:"planNames"`
	ServiceNames  []string      `json:"serviceNames"`
	// ParametersExpr is a JMESPath expression over the instance parameters which must yield true.
	ParametersExpr string `json:"parametersExpr,omitempty"`
}

// Validate checks durations, rules and every catalog reference. The configuration is accepted or
// rejected as a whole.
func (c BrokerConfig) Validate(catalog CatalogLookup) error {
	if c.AsyncDuration != nil && *c.AsyncDuration < 0 {
		return Err(ErrInvalidConfig, nil, "asyncDuration must be non-negative")
	}
	if c.SyncDuration != nil && *c.SyncDuration < 0 {
		return Err(ErrInvalidConfig, nil, "syncDuration must be non-negative")
	}
	for i, r := range c.FailConfigurations {
		if r.OperationType == "" {
			return Err(ErrInvalidConfig, nil, "failConfigurations[%d]: operationType is required", i)
		}
		if !r.OperationType.Valid() {
			return Err(ErrInvalidConfig, nil, "failConfigurations[%d]: unknown operationType %q", i, r.OperationType)
		}
		if r.Status < MinFailStatus || r.Status >= MaxFailStatus {
			return Err(ErrInvalidConfig, nil, "failConfigurations[%d]: status must be in [%d,%d)", i, MinFailStatus, MaxFailStatus)
		}
		for _, name := range r.ServiceNames {
			if _, ok := catalog.ServiceIDByName(name); !ok {
				return Err(ErrUnknownReference, nil, "failConfigurations[%d]: service %q", i, name)
			}
		}
		for _, name := range r.PlanNames {
			if _, ok := catalog.PlanIDByName(name); !ok {
				return Err(ErrUnknownReference, nil, "failConfigurations[%d]: plan %q", i, name)
			}
		}
		for _, id := range r.ServiceIDs {
			if !catalog.HasService(id) {
				return Err(ErrUnknownReference, nil, "failConfigurations[%d]: service id %s", i, id)
			}
		}
		for _, id := range r.PlanIDs {
			if !catalog.HasPlan(id) {
				return Err(ErrUnknownReference, nil, "failConfigurations[%d]: plan id %s", i, id)
			}
		}
		if r.ParametersExpr != "" {
			if _, err := jmespath.Compile(r.ParametersExpr); err != nil {
				return Err(ErrInvalidConfig, err, "failConfigurations[%d]: parametersExpr", i)
			}
		}
	}
	return nil
}
