package flow

import (
	"budgie/internal/metrics"
	"budgie/internal/ports"
	"budgie/internal/types"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrAsyncRequired is the broker error code for async tenants called without accepts_incomplete.
const ErrAsyncRequired = "AsyncRequired"

// Request carries the per-call context of a broker operation.
type Request struct {
	Tenant            string
	AcceptsIncomplete bool
}

// Result is the outcome of an operation as the platform sees it. Business failures (injected failures,
// conflicts, gone resources) are results, not errors.
type Result struct {
	Status      int
	Error       string
	Description string
	Binding     *types.Binding
	// Operation is set on accepted async operations and names what is in progress.
	Operation types.OperationType
}

func (r Result) succeeded() bool {
	// Gone on a removal means the desired end state already holds.
	return r.Status < http.StatusBadRequest || r.Status == http.StatusGone
}

// Orchestrator runs create, update, delete, bind and unbind against the instance store, applying the
// tenant's configured timing and fail rules.
type Orchestrator struct {
	Behavior  *Behavior
	Instances ports.InstanceStore
	Tasks     ports.TaskStore
	Runner    *Runner
	Publisher ports.Publisher
	Metrics   *metrics.Metrics
}

func NewOrchestrator(behavior *Behavior, instances ports.InstanceStore, tasks ports.TaskStore,
	publisher ports.Publisher, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		Behavior:  behavior,
		Instances: instances,
		Tasks:     tasks,
		Runner:    NewRunner(tasks, m),
		Publisher: publisher,
		Metrics:   m,
	}
}

// operation describes one orchestrated call. target is the instance the fail rules are evaluated against.
type operation struct {
	op         types.OperationType
	trackingID uuid.UUID
	instanceID uuid.UUID
	bindingID  *uuid.UUID
	target     types.ServiceInstance
	mutate     func(ctx context.Context) Result
}

// Create provisions the instance. Re-creating an identical instance is a no-op answered with 200.
func (o *Orchestrator) Create(ctx context.Context, req Request, instance types.ServiceInstance) Result {
	return o.execute(ctx, req, operation{
		op:         types.OperationCreate,
		trackingID: instance.ID,
		instanceID: instance.ID,
		target:     instance,
		mutate: func(ctx context.Context) Result {
			if existing, ok := o.Instances.LookupInstance(ctx, instance.ID); ok && existing.SameAs(instance) {
				return Result{Status: http.StatusOK}
			}
			if err := o.Instances.CreateInstance(ctx, instance); err != nil {
				panic(err)
			}
			return Result{Status: http.StatusCreated}
		},
	})
}

// Update replaces the instance attributes. Fields the request leaves empty keep their current values.
func (o *Orchestrator) Update(ctx context.Context, req Request, instance types.ServiceInstance) Result {
	if existing, ok := o.Instances.LookupInstance(ctx, instance.ID); ok {
		instance = mergeUpdate(existing, instance)
	}
	return o.execute(ctx, req, operation{
		op:         types.OperationUpdate,
		trackingID: instance.ID,
		instanceID: instance.ID,
		target:     instance,
		mutate: func(ctx context.Context) Result {
			if err := o.Instances.UpdateInstance(ctx, instance); err != nil {
				panic(err)
			}
			return Result{Status: http.StatusOK}
		},
	})
}

// Delete deprovisions the instance. An unknown instance is gone before any configuration is consulted.
func (o *Orchestrator) Delete(ctx context.Context, req Request, instanceID uuid.UUID) Result {
	existing, ok := o.Instances.LookupInstance(ctx, instanceID)
	if !ok {
		return gone("service instance %s does not exist", instanceID)
	}
	return o.execute(ctx, req, operation{
		op:         types.OperationDelete,
		trackingID: instanceID,
		instanceID: instanceID,
		target:     existing,
		mutate: func(ctx context.Context) Result {
			if err := o.Instances.DeleteInstance(ctx, instanceID); err != nil {
				if errors.Is(err, types.ErrNotFound) {
					return gone("service instance %s was already deleted", instanceID)
				}
				panic(err)
			}
			return Result{Status: http.StatusOK}
		},
	})
}

// Bind creates a binding on an existing instance. An existing binding id is a conflict and the new
// payload is dropped.
func (o *Orchestrator) Bind(ctx context.Context, req Request, instanceID uuid.UUID, binding types.Binding) Result {
	existing, ok := o.Instances.LookupInstance(ctx, instanceID)
	if !ok {
		return badRequest("service instance %s does not exist", instanceID)
	}
	if len(binding.Credentials) == 0 {
		binding.Credentials = simulatedCredentials(instanceID, binding.ID)
	}
	bindingID := binding.ID
	return o.execute(ctx, req, operation{
		op:         types.OperationBind,
		trackingID: bindingID,
		instanceID: instanceID,
		bindingID:  &bindingID,
		target:     existing,
		mutate: func(ctx context.Context) Result {
			err := o.Instances.Bind(ctx, instanceID, binding)
			switch {
			case errors.Is(err, types.ErrConflict):
				return Result{
					Status:      http.StatusConflict,
					Description: fmt.Sprintf("binding %s already exists", bindingID),
				}
			case errors.Is(err, types.ErrNotFound):
				return badRequest("service instance %s does not exist", instanceID)
			case err != nil:
				panic(err)
			}
			return Result{Status: http.StatusCreated, Binding: &binding}
		},
	})
}

// Unbind removes a binding. Unknown instances are a client error; unknown bindings are gone.
func (o *Orchestrator) Unbind(ctx context.Context, req Request, instanceID, bindingID uuid.UUID) Result {
	existing, ok := o.Instances.LookupInstance(ctx, instanceID)
	if !ok {
		return badRequest("service instance %s does not exist", instanceID)
	}
	if _, err := o.Instances.GetBinding(ctx, instanceID, bindingID); err != nil {
		return gone("binding %s does not exist", bindingID)
	}
	return o.execute(ctx, req, operation{
		op:         types.OperationUnbind,
		trackingID: bindingID,
		instanceID: instanceID,
		bindingID:  &bindingID,
		target:     existing,
		mutate: func(ctx context.Context) Result {
			if err := o.Instances.Unbind(ctx, instanceID, bindingID); err != nil {
				if errors.Is(err, types.ErrNotFound) {
					return gone("binding %s was already removed", bindingID)
				}
				panic(err)
			}
			return Result{Status: http.StatusOK}
		},
	})
}

// LastOperation returns the recorded state of the async operation tracked by id.
func (o *Orchestrator) LastOperation(ctx context.Context, trackingID uuid.UUID) (types.LastOperation, bool) {
	return o.Tasks.GetTask(ctx, trackingID)
}

// DeleteAll drops every instance and every recorded operation state.
func (o *Orchestrator) DeleteAll(ctx context.Context) error {
	if err := o.Instances.DeleteAllInstances(ctx); err != nil {
		return err
	}
	o.Tasks.ClearAll(ctx)
	return nil
}

func (o *Orchestrator) execute(ctx context.Context, req Request, op operation) Result {
	logger := log.WithFields(log.Fields{
		"tenant":     req.Tenant,
		"operation":  op.op,
		"trackingID": op.trackingID,
	})
	async := o.Behavior.IsAsync(ctx, req.Tenant)
	if async && !req.AcceptsIncomplete {
		o.Metrics.RecordOperation(string(op.op), ModeAsync, OutcomeRejected)
		return Result{
			Status:      http.StatusUnprocessableEntity,
			Error:       ErrAsyncRequired,
			Description: "This broker configuration requires asynchronous operations; set accepts_incomplete=true",
		}
	}
	delay := o.Behavior.ResolveDelay(ctx, req.Tenant)

	if !async {
		if delay > 0 {
			sleep(delay)
		}
		res := o.attempt(ctx, req, op, ModeSync, logger)
		state := types.StateSucceeded
		if !res.succeeded() {
			state = types.StateFailed
		}
		o.emit(ctx, req, op, false, state, res.Status)
		return res
	}

	bg := context.WithoutCancel(ctx)
	o.Runner.Schedule(bg, op.trackingID, op.op, delay, func(ctx context.Context) types.LastOperation {
		res := o.attempt(ctx, req, op, ModeAsync, logger)
		last := types.LastOperation{State: types.StateSucceeded, Description: res.Description}
		if !res.succeeded() {
			last.State = types.StateFailed
		}
		o.emit(ctx, req, op, true, last.State, 0)
		return last
	})
	o.Metrics.RecordOperation(string(op.op), ModeAsync, OutcomeAccepted)
	logger.WithField("delay", delay).Debug("async operation accepted")
	return Result{Status: http.StatusAccepted, Operation: op.op}
}

// attempt evaluates the fail rules and, when none matches, performs the mutation.
func (o *Orchestrator) attempt(ctx context.Context, req Request, op operation, mode string, logger *log.Entry) Result {
	if status, fail := o.Behavior.ShouldFail(ctx, req.Tenant, op.op, op.target); fail {
		logger.WithField("status", status).Info("injected failure")
		o.Metrics.RecordInjectedFailure(string(op.op), status)
		o.Metrics.RecordOperation(string(op.op), mode, OutcomeInjected)
		return Result{
			Status:      status,
			Description: fmt.Sprintf("%s failed by broker configuration with status %d", op.op, status),
		}
	}
	res := op.mutate(ctx)
	outcome := OutcomeSucceeded
	switch {
	case res.Status == http.StatusOK && op.op == types.OperationCreate:
		outcome = OutcomeNoOp
	case !res.succeeded():
		outcome = OutcomeRejected
	}
	o.Metrics.RecordOperation(string(op.op), mode, outcome)
	return res
}

func (o *Orchestrator) emit(ctx context.Context, req Request, op operation, async bool,
	state types.OperationState, status int) {
	if o.Publisher == nil {
		return
	}
	event := types.OperationEvent{
		Tenant:     req.Tenant,
		Operation:  op.op,
		TrackingID: op.trackingID,
		InstanceID: op.instanceID,
		BindingID:  op.bindingID,
		Async:      async,
		State:      state,
		Status:     status,
		At:         EpochTime(),
	}
	if err := o.Publisher.Publish(ctx, event); err != nil {
		log.WithError(err).WithField("trackingID", op.trackingID).Warn("failed to publish operation event")
		o.Metrics.RecordPublish("error")
		return
	}
	o.Metrics.RecordPublish("ok")
}

// mergeUpdate fills the fields an update request left empty from the stored instance.
func mergeUpdate(existing, update types.ServiceInstance) types.ServiceInstance {
	if update.ServiceID == uuid.Nil {
		update.ServiceID = existing.ServiceID
	}
	if update.PlanID == uuid.Nil {
		update.PlanID = existing.PlanID
	}
	if update.OrganizationGUID == "" {
		update.OrganizationGUID = existing.OrganizationGUID
	}
	if update.SpaceGUID == "" {
		update.SpaceGUID = existing.SpaceGUID
	}
	if update.Parameters == nil {
		update.Parameters = existing.Parameters
	}
	if update.Context == nil {
		update.Context = existing.Context
	}
	update.Bindings = nil
	return update
}

func simulatedCredentials(instanceID, bindingID uuid.UUID) map[string]any {
	return map[string]any{
		"uri":      fmt.Sprintf("budgie://%s/%s", instanceID, bindingID),
		"username": "budgie-" + bindingID.String()[:8],
		"password": uuid.NewString(),
	}
}

func gone(format string, args ...any) Result {
	return Result{Status: http.StatusGone, Description: fmt.Sprintf(format, args...)}
}

func badRequest(format string, args ...any) Result {
	return Result{Status: http.StatusBadRequest, Description: fmt.Sprintf(format, args...)}
}
