package flow

import (
	"budgie/internal/types"
	"net/http"
	"time"

	"github.com/google/uuid"
)

var acceptsIncomplete = Request{AcceptsIncomplete: true}

func (s *UnitTestSuite) TestCreateIsIdempotent() {
	inst := s.newInstance()

	res := s.orch.Create(s.ctx, Request{}, inst)
	s.Equal(http.StatusCreated, res.Status)

	res = s.orch.Create(s.ctx, Request{}, inst.Clone())
	s.Equal(http.StatusOK, res.Status)

	changed := inst.Clone()
	changed.PlanID = plan2ID
	res = s.orch.Create(s.ctx, Request{}, changed)
	s.Equal(http.StatusCreated, res.Status)

	stored, err := s.instances.GetInstance(s.ctx, inst.ID)
	s.NoError(err)
	s.Equal(plan2ID, stored.PlanID)
}

func (s *UnitTestSuite) TestSyncDurationDelaysCreate() {
	s.configure("t2", types.BrokerConfig{SyncDuration: intPtr(50)})
	inst := s.newInstance()
	req := Request{Tenant: "t2"}

	start := time.Now()
	res := s.orch.Create(s.ctx, req, inst)
	s.GreaterOrEqual(time.Since(start), 50*time.Millisecond)
	s.Equal(http.StatusCreated, res.Status)

	start = time.Now()
	res = s.orch.Create(s.ctx, req, inst)
	s.GreaterOrEqual(time.Since(start), 50*time.Millisecond)
	s.Equal(http.StatusOK, res.Status)
}

func (s *UnitTestSuite) TestNoConfigurationIsSyncAndNeverFails() {
	req := Request{Tenant: "t3"}
	inst := s.newInstance()
	bindingID := uuid.New()

	s.Equal(http.StatusCreated, s.orch.Create(s.ctx, req, inst).Status)
	s.Equal(http.StatusOK, s.orch.Update(s.ctx, req, inst).Status)
	s.Equal(http.StatusCreated, s.orch.Bind(s.ctx, req, inst.ID, types.Binding{ID: bindingID}).Status)
	s.Equal(http.StatusOK, s.orch.Unbind(s.ctx, req, inst.ID, bindingID).Status)
	s.Equal(http.StatusOK, s.orch.Delete(s.ctx, req, inst.ID).Status)

	_, ok := s.orch.LastOperation(s.ctx, inst.ID)
	s.False(ok, "sync operations record no task state")
}

func (s *UnitTestSuite) TestInjectedFailureLeavesStateUntouched() {
	s.configure("f", types.BrokerConfig{FailConfigurations: []types.FailRule{
		{OperationType: types.OperationCreate, Status: 418, PlanNames: []string{"plan1"}},
	}})
	inst := s.newInstance()
	res := s.orch.Create(s.ctx, Request{Tenant: "f"}, inst)
	s.Equal(418, res.Status)
	_, ok := s.instances.LookupInstance(s.ctx, inst.ID)
	s.False(ok)

	inst.PlanID = plan2ID
	res = s.orch.Create(s.ctx, Request{Tenant: "f"}, inst)
	s.Equal(http.StatusCreated, res.Status)
}

func (s *UnitTestSuite) TestDeleteUnknownInstanceIsGone() {
	id := uuid.New()
	s.Equal(http.StatusGone, s.orch.Delete(s.ctx, Request{}, id).Status)

	inst := s.newInstance()
	s.Equal(http.StatusCreated, s.orch.Create(s.ctx, Request{}, inst).Status)
	s.Equal(http.StatusOK, s.orch.Delete(s.ctx, Request{}, inst.ID).Status)
	s.Equal(http.StatusGone, s.orch.Delete(s.ctx, Request{}, inst.ID).Status)
}

func (s *UnitTestSuite) TestGoneIsDecidedBeforeConfiguration() {
	// Even an async tenant without accepts_incomplete gets gone rather than 422.
	s.configure("a", types.BrokerConfig{AsyncDuration: intPtr(0), FailConfigurations: []types.FailRule{
		{OperationType: types.OperationDelete, Status: 500, FailAll: true},
	}})
	s.Equal(http.StatusGone, s.orch.Delete(s.ctx, Request{Tenant: "a"}, uuid.New()).Status)
}

func (s *UnitTestSuite) TestBindingOperationsOnUnknownInstance() {
	id := uuid.New()
	s.Equal(http.StatusBadRequest, s.orch.Bind(s.ctx, Request{}, id, types.Binding{ID: uuid.New()}).Status)
	s.Equal(http.StatusBadRequest, s.orch.Unbind(s.ctx, Request{}, id, uuid.New()).Status)
}

func (s *UnitTestSuite) TestBindTwiceConflicts() {
	inst := s.newInstance()
	s.Require().Equal(http.StatusCreated, s.orch.Create(s.ctx, Request{}, inst).Status)
	bindingID := uuid.New()

	first := types.Binding{ID: bindingID, AppGUID: "app-1", Credentials: map[string]any{"user": "first"}}
	res := s.orch.Bind(s.ctx, Request{}, inst.ID, first)
	s.Equal(http.StatusCreated, res.Status)
	s.Require().NotNil(res.Binding)
	s.Equal("first", res.Binding.Credentials["user"])

	second := types.Binding{ID: bindingID, AppGUID: "app-2", Credentials: map[string]any{"user": "second"}}
	res = s.orch.Bind(s.ctx, Request{}, inst.ID, second)
	s.Equal(http.StatusConflict, res.Status)

	stored, err := s.instances.GetBinding(s.ctx, inst.ID, bindingID)
	s.NoError(err)
	s.Equal("app-1", stored.AppGUID)
	s.Equal("first", stored.Credentials["user"])
}

func (s *UnitTestSuite) TestBindGeneratesCredentials() {
	inst := s.newInstance()
	s.orch.Create(s.ctx, Request{}, inst)
	res := s.orch.Bind(s.ctx, Request{}, inst.ID, types.Binding{ID: uuid.New()})
	s.Equal(http.StatusCreated, res.Status)
	s.Contains(res.Binding.Credentials, "uri")
	s.Contains(res.Binding.Credentials, "password")
}

func (s *UnitTestSuite) TestUnbindUnknownBindingIsGone() {
	inst := s.newInstance()
	s.orch.Create(s.ctx, Request{}, inst)
	s.configure("u", types.BrokerConfig{FailConfigurations: []types.FailRule{
		{OperationType: types.OperationUnbind, Status: 500, FailAll: true},
	}})
	s.Equal(http.StatusGone, s.orch.Unbind(s.ctx, Request{Tenant: "u"}, inst.ID, uuid.New()).Status)
}

func (s *UnitTestSuite) TestUpdateKeepsBindingsAndMergesFields() {
	inst := s.newInstance()
	inst.OrganizationGUID = "org"
	s.orch.Create(s.ctx, Request{}, inst)
	bindingID := uuid.New()
	s.orch.Bind(s.ctx, Request{}, inst.ID, types.Binding{ID: bindingID})

	res := s.orch.Update(s.ctx, Request{}, types.ServiceInstance{ID: inst.ID, PlanID: plan2ID})
	s.Equal(http.StatusOK, res.Status)

	stored, err := s.instances.GetInstance(s.ctx, inst.ID)
	s.NoError(err)
	s.Equal(plan2ID, stored.PlanID)
	s.Equal(service1ID, stored.ServiceID)
	s.Equal("org", stored.OrganizationGUID)
	s.Equal(inst.Parameters, stored.Parameters)
	s.Len(stored.Bindings, 1)
	s.Equal(bindingID, stored.Bindings[0].ID)
}

func (s *UnitTestSuite) TestUpdateFailRuleSeesNewPlan() {
	inst := s.newInstance()
	s.orch.Create(s.ctx, Request{}, inst)
	s.configure("up", types.BrokerConfig{FailConfigurations: []types.FailRule{
		{OperationType: types.OperationUpdate, Status: 422, PlanNames: []string{"plan2"}},
	}})
	res := s.orch.Update(s.ctx, Request{Tenant: "up"}, types.ServiceInstance{ID: inst.ID, PlanID: plan2ID})
	s.Equal(422, res.Status)

	stored, _ := s.instances.GetInstance(s.ctx, inst.ID)
	s.Equal(plan1ID, stored.PlanID)
}

func (s *UnitTestSuite) TestAsyncRequiresAcceptsIncomplete() {
	s.configure("async", types.BrokerConfig{AsyncDuration: intPtr(0)})
	inst := s.newInstance()

	res := s.orch.Create(s.ctx, Request{Tenant: "async"}, inst)
	s.Equal(http.StatusUnprocessableEntity, res.Status)
	s.Equal(ErrAsyncRequired, res.Error)
	s.orch.Runner.Wait()
	_, ok := s.instances.LookupInstance(s.ctx, inst.ID)
	s.False(ok)
	_, ok = s.orch.LastOperation(s.ctx, inst.ID)
	s.False(ok)
}

func (s *UnitTestSuite) TestAsyncCreateSucceeds() {
	s.configure("async", types.BrokerConfig{AsyncDuration: intPtr(30)})
	inst := s.newInstance()
	req := acceptsIncomplete
	req.Tenant = "async"

	res := s.orch.Create(s.ctx, req, inst)
	s.Equal(http.StatusAccepted, res.Status)
	s.Equal(types.OperationCreate, res.Operation)

	s.orch.Runner.Wait()
	op, ok := s.orch.LastOperation(s.ctx, inst.ID)
	s.True(ok)
	s.Equal(types.StateSucceeded, op.State)
	_, ok = s.instances.LookupInstance(s.ctx, inst.ID)
	s.True(ok)
}

func (s *UnitTestSuite) TestAsyncBindFailAllScenario() {
	inst := s.newInstance()
	s.Require().Equal(http.StatusCreated, s.orch.Create(s.ctx, Request{Tenant: "t1"}, inst).Status)
	s.configure("t1", types.BrokerConfig{
		AsyncDuration: intPtr(200),
		FailConfigurations: []types.FailRule{
			{OperationType: types.OperationBind, FailAll: true, Status: 400},
		},
	})
	req := Request{Tenant: "t1", AcceptsIncomplete: true}
	bindingID := uuid.New()

	start := time.Now()
	res := s.orch.Bind(s.ctx, req, inst.ID, types.Binding{ID: bindingID})
	s.Equal(http.StatusAccepted, res.Status)
	s.Less(time.Since(start), 200*time.Millisecond)

	if op, ok := s.orch.LastOperation(s.ctx, bindingID); ok {
		s.Equal(types.StateInProgress, op.State)
	}

	s.Eventually(func() bool {
		op, ok := s.orch.LastOperation(s.ctx, bindingID)
		return ok && op.State == types.StateFailed
	}, 2*time.Second, 10*time.Millisecond)
	s.GreaterOrEqual(time.Since(start), 200*time.Millisecond)

	_, err := s.instances.GetBinding(s.ctx, inst.ID, bindingID)
	s.ErrorIs(err, types.ErrNotFound)
}

func (s *UnitTestSuite) TestAsyncBindDuplicateFails() {
	inst := s.newInstance()
	s.orch.Create(s.ctx, Request{}, inst)
	bindingID := uuid.New()
	s.Require().Equal(http.StatusCreated,
		s.orch.Bind(s.ctx, Request{}, inst.ID, types.Binding{ID: bindingID, AppGUID: "first"}).Status)

	s.configure("ab", types.BrokerConfig{AsyncDuration: intPtr(0)})
	res := s.orch.Bind(s.ctx, Request{Tenant: "ab", AcceptsIncomplete: true}, inst.ID,
		types.Binding{ID: bindingID, AppGUID: "second"})
	s.Equal(http.StatusAccepted, res.Status)
	s.orch.Runner.Wait()

	op, ok := s.orch.LastOperation(s.ctx, bindingID)
	s.True(ok)
	s.Equal(types.StateFailed, op.State)
	stored, err := s.instances.GetBinding(s.ctx, inst.ID, bindingID)
	s.NoError(err)
	s.Equal("first", stored.AppGUID)
}

func (s *UnitTestSuite) TestAsyncDeleteAndUnbind() {
	inst := s.newInstance()
	s.orch.Create(s.ctx, Request{}, inst)
	bindingID := uuid.New()
	s.orch.Bind(s.ctx, Request{}, inst.ID, types.Binding{ID: bindingID})

	s.configure("ad", types.BrokerConfig{AsyncDuration: intPtr(10)})
	req := Request{Tenant: "ad", AcceptsIncomplete: true}

	s.Equal(http.StatusAccepted, s.orch.Unbind(s.ctx, req, inst.ID, bindingID).Status)
	s.orch.Runner.Wait()
	op, _ := s.orch.LastOperation(s.ctx, bindingID)
	s.Equal(types.StateSucceeded, op.State)

	s.Equal(http.StatusAccepted, s.orch.Delete(s.ctx, req, inst.ID).Status)
	s.orch.Runner.Wait()
	op, _ = s.orch.LastOperation(s.ctx, inst.ID)
	s.Equal(types.StateSucceeded, op.State)
	_, ok := s.instances.LookupInstance(s.ctx, inst.ID)
	s.False(ok)
}

func (s *UnitTestSuite) TestAsyncInjectedFailureDoesNotMutate() {
	s.configure("af", types.BrokerConfig{
		AsyncDuration: intPtr(0),
		FailConfigurations: []types.FailRule{
			{OperationType: types.OperationCreate, Status: 500, ServiceNames: []string{"service1"}},
		},
	})
	inst := s.newInstance()
	s.Equal(http.StatusAccepted, s.orch.Create(s.ctx, Request{Tenant: "af", AcceptsIncomplete: true}, inst).Status)
	s.orch.Runner.Wait()
	op, _ := s.orch.LastOperation(s.ctx, inst.ID)
	s.Equal(types.StateFailed, op.State)
	_, ok := s.instances.LookupInstance(s.ctx, inst.ID)
	s.False(ok)
}

func (s *UnitTestSuite) TestDeleteAllClearsInstancesAndTasks() {
	s.configure("async", types.BrokerConfig{AsyncDuration: intPtr(0)})
	inst := s.newInstance()
	s.orch.Create(s.ctx, Request{Tenant: "async", AcceptsIncomplete: true}, inst)
	s.orch.Runner.Wait()

	s.NoError(s.orch.DeleteAll(s.ctx))
	all, err := s.instances.ListInstances(s.ctx)
	s.NoError(err)
	s.Empty(all)
	_, ok := s.orch.LastOperation(s.ctx, inst.ID)
	s.False(ok)
}

func (s *UnitTestSuite) TestEventsArePublished() {
	inst := s.newInstance()
	s.orch.Create(s.ctx, Request{Tenant: "ev"}, inst)

	s.configure("ev", types.BrokerConfig{
		AsyncDuration: intPtr(0),
		FailConfigurations: []types.FailRule{
			{OperationType: types.OperationUpdate, Status: 503, FailAll: true},
		},
	})
	s.orch.Update(s.ctx, Request{Tenant: "ev", AcceptsIncomplete: true}, inst)
	s.orch.Runner.Wait()

	events := s.publisher.Events()
	s.Require().Len(events, 2)
	s.Equal(types.OperationCreate, events[0].Operation)
	s.False(events[0].Async)
	s.Equal(types.StateSucceeded, events[0].State)
	s.Equal(http.StatusCreated, events[0].Status)
	s.Equal(inst.ID, events[0].TrackingID)

	s.Equal(types.OperationUpdate, events[1].Operation)
	s.True(events[1].Async)
	s.Equal(types.StateFailed, events[1].State)
	s.Equal("ev", events[1].Tenant)
}
