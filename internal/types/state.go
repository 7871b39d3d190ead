package types

import "time"

// OperationState is the observable state of an asynchronous operation.
type OperationState string

const (
	StateInProgress OperationState = "in progress"
	StateSucceeded  OperationState = "succeeded"
	StateFailed     OperationState = "failed"
)

func (s OperationState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// LastOperation is the state recorded for a tracking id (instance id or binding id).
// It is what pollers see on the last_operation endpoints.
type LastOperation struct {
	State       OperationState `json:"state"`
	Description string         `json:"description,omitempty"`
	Operation   OperationType  `json:"-"`
	UpdatedAt   time.Time      `json:"-"`
}
