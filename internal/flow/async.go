package flow

import (
	"budgie/internal/metrics"
	"budgie/internal/ports"
	"budgie/internal/types"
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Work is the body of an asynchronous operation. It reports business failures through the returned
// state; a panic is treated as an unexpected fault.
type Work func(ctx context.Context) types.LastOperation

// Runner executes asynchronous operations, one goroutine per task. There is no pool and no cancellation:
// every scheduled task sleeps its delay, runs and records a terminal state.
type Runner struct {
	tasks   ports.TaskStore
	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

func NewRunner(tasks ports.TaskStore, m *metrics.Metrics) *Runner {
	return &Runner{tasks: tasks, metrics: m}
}

// Schedule starts the task and returns immediately. The task becomes visible as in progress only once
// its goroutine runs, so a poll right after Schedule may find nothing for the tracking id.
func (r *Runner) Schedule(ctx context.Context, trackingID uuid.UUID, op types.OperationType,
	delay time.Duration, work Work) {
	r.wg.Add(1)
	r.metrics.TaskStarted()
	go r.run(ctx, trackingID, op, delay, work)
}

// Wait blocks until every scheduled task has recorded its terminal state.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run(ctx context.Context, trackingID uuid.UUID, op types.OperationType,
	delay time.Duration, work Work) {
	defer r.wg.Done()
	logger := log.WithFields(log.Fields{
		"trackingID": trackingID,
		"operation":  op,
	})

	r.tasks.PutTask(ctx, trackingID, types.LastOperation{
		State:     types.StateInProgress,
		Operation: op,
		UpdatedAt: timeNow(),
	})

	defer func() {
		if p := recover(); p != nil {
			logger.WithField("stack", string(debug.Stack())).Errorf("async task crashed: %v", p)
			r.tasks.PutTask(ctx, trackingID, types.LastOperation{
				State:       types.StateFailed,
				Description: fmt.Sprintf("internal error: %v", p),
				Operation:   op,
				UpdatedAt:   timeNow(),
			})
			r.metrics.TaskPanicked()
			r.metrics.TaskFinished(string(op), string(types.StateFailed))
		}
	}()

	if delay > 0 {
		sleep(delay)
	}
	result := work(ctx)
	if !result.State.Terminal() {
		panic(fmt.Sprintf("work returned non-terminal state %q", result.State))
	}
	result.Operation = op
	result.UpdatedAt = timeNow()
	r.tasks.PutTask(ctx, trackingID, result)
	r.metrics.TaskFinished(string(op), string(result.State))
	logger.WithField("state", result.State).Debug("async task finished")
}
