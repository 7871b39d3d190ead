package types

import "github.com/google/uuid"

// OperationEvent is emitted once per finished operation, sync or async.
// Status is the HTTP status a sync caller received, or 0 for async completions.
type OperationEvent struct {
	Tenant     string         `json:"tenant" dynamodbav:"tenant"`
	Operation  OperationType  `json:"operation" dynamodbav:"operation"`
	TrackingID uuid.UUID      `json:"tracking_id" dynamodbav:"-"`
	InstanceID uuid.UUID      `json:"instance_id" dynamodbav:"-"`
	BindingID  *uuid.UUID     `json:"binding_id,omitempty" dynamodbav:"-"`
	Async      bool           `json:"async" dynamodbav:"async"`
	State      OperationState `json:"state" dynamodbav:"state"`
	Status     int            `json:"status,omitempty" dynamodbav:"status"`
	At         int64          `json:"at" dynamodbav:"at"`
}
