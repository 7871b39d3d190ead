package ports

import (
	"budgie/internal/types"
	"context"
)

// Publisher delivers operation events to an external sink. Failures are reported to the caller, which
// logs them; they never change an operation's outcome.
type Publisher interface {
	Publish(ctx context.Context, event types.OperationEvent) error
}

// EventLog is implemented by publishers that can read back what they delivered.
// Events returns up to limit events of the tenant, newest first.
type EventLog interface {
	Events(ctx context.Context, tenant string, limit int) ([]types.OperationEvent, error)
}
