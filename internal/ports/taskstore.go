package ports

import (
	"budgie/internal/types"
	"context"

	"github.com/google/uuid"
)

// TaskStore records the state of asynchronous operations by tracking id.
// Entries live for the process lifetime; a later Put for the same id overwrites the earlier one.
type TaskStore interface {
	// GetTask returns (state, false) when nothing was recorded for the id yet.
	GetTask(ctx context.Context, trackingID uuid.UUID) (types.LastOperation, bool)

	PutTask(ctx context.Context, trackingID uuid.UUID, op types.LastOperation)

	// ClearAll drops every recorded state.
	ClearAll(ctx context.Context)
}
