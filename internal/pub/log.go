package pub

import (
	"budgie/internal/types"
	"context"

	log "github.com/sirupsen/logrus"
)

// Log is the publisher used when no event backend is configured. It writes events to the debug log.
type Log struct{}

func (Log) Publish(_ context.Context, e types.OperationEvent) error {
	log.WithFields(log.Fields{
		"tenant":     e.Tenant,
		"operation":  e.Operation,
		"trackingID": e.TrackingID,
		"async":      e.Async,
		"state":      e.State,
		"status":     e.Status,
	}).Debug("operation event")
	return nil
}
