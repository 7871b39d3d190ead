package memory

import (
	"budgie/internal/types"
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// DefaultEventLogSize bounds the events kept per tenant.
const DefaultEventLogSize = 100

// EventLog implements ports.Publisher and ports.EventLog by keeping the latest events of each tenant in
// process memory.
type EventLog struct {
	mu     sync.RWMutex
	size   int
	events map[string][]types.OperationEvent
}

func NewEventLog(size int) *EventLog {
	if size <= 0 {
		size = DefaultEventLogSize
	}
	return &EventLog{size: size, events: make(map[string][]types.OperationEvent)}
}

func (l *EventLog) Publish(_ context.Context, event types.OperationEvent) error {
	log.WithFields(log.Fields{
		"tenant":     event.Tenant,
		"operation":  event.Operation,
		"trackingID": event.TrackingID,
		"state":      event.State,
	}).Debug("operation event")
	l.mu.Lock()
	defer l.mu.Unlock()
	events := append(l.events[event.Tenant], event)
	if len(events) > l.size {
		events = events[len(events)-l.size:]
	}
	l.events[event.Tenant] = events
	return nil
}

func (l *EventLog) Events(_ context.Context, tenant string, limit int) ([]types.OperationEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	events := l.events[tenant]
	if limit <= 0 || limit > len(events) {
		limit = len(events)
	}
	out := make([]types.OperationEvent, 0, limit)
	for i := len(events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, events[i])
	}
	return out, nil
}
