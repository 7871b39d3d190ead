package flow

import (
	"budgie/internal/metrics"
	"budgie/internal/types"
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func (s *UnitTestSuite) TestRunnerRecordsInProgressThenTerminal() {
	r := NewRunner(s.tasks, nil)
	id := uuid.New()
	release := make(chan struct{})

	r.Schedule(s.ctx, id, types.OperationCreate, 0, func(ctx context.Context) types.LastOperation {
		<-release
		return types.LastOperation{State: types.StateSucceeded}
	})

	s.Eventually(func() bool {
		op, ok := s.tasks.GetTask(s.ctx, id)
		return ok && op.State == types.StateInProgress
	}, time.Second, 5*time.Millisecond)

	close(release)
	r.Wait()
	op, ok := s.tasks.GetTask(s.ctx, id)
	s.True(ok)
	s.Equal(types.StateSucceeded, op.State)
	s.Equal(types.OperationCreate, op.Operation)
}

func (s *UnitTestSuite) TestRunnerHonorsDelay() {
	r := NewRunner(s.tasks, nil)
	id := uuid.New()
	start := time.Now()
	var ran time.Time
	r.Schedule(s.ctx, id, types.OperationBind, 80*time.Millisecond, func(ctx context.Context) types.LastOperation {
		ran = time.Now()
		return types.LastOperation{State: types.StateFailed, Description: "nope"}
	})
	r.Wait()
	s.GreaterOrEqual(ran.Sub(start), 80*time.Millisecond)
	op, _ := s.tasks.GetTask(s.ctx, id)
	s.Equal(types.StateFailed, op.State)
	s.Equal("nope", op.Description)
}

func (s *UnitTestSuite) TestRunnerRecordsPanicAsFailure() {
	m := metrics.NewMetrics()
	r := NewRunner(s.tasks, m)
	id := uuid.New()
	r.Schedule(s.ctx, id, types.OperationUpdate, 0, func(ctx context.Context) types.LastOperation {
		panic("boom")
	})
	r.Wait()

	op, ok := s.tasks.GetTask(s.ctx, id)
	s.True(ok)
	s.Equal(types.StateFailed, op.State)
	s.Contains(op.Description, "boom")
	s.NoError(testutil.GatherAndCompare(m.Registry(), strings.NewReader(`
# HELP budgie_async_task_panics_total Asynchronous tasks that ended with an unexpected panic
# TYPE budgie_async_task_panics_total counter
budgie_async_task_panics_total 1
`), "budgie_async_task_panics_total"))
}

func (s *UnitTestSuite) TestRunnerRejectsNonTerminalResult() {
	r := NewRunner(s.tasks, nil)
	id := uuid.New()
	r.Schedule(s.ctx, id, types.OperationDelete, 0, func(ctx context.Context) types.LastOperation {
		return types.LastOperation{State: types.StateInProgress}
	})
	r.Wait()
	op, _ := s.tasks.GetTask(s.ctx, id)
	s.Equal(types.StateFailed, op.State)
}

func (s *UnitTestSuite) TestRunnerLastScheduleWins() {
	r := NewRunner(s.tasks, nil)
	id := uuid.New()
	r.Schedule(s.ctx, id, types.OperationCreate, 0, func(ctx context.Context) types.LastOperation {
		return types.LastOperation{State: types.StateFailed}
	})
	r.Wait()
	r.Schedule(s.ctx, id, types.OperationUpdate, 0, func(ctx context.Context) types.LastOperation {
		return types.LastOperation{State: types.StateSucceeded}
	})
	r.Wait()
	op, _ := s.tasks.GetTask(s.ctx, id)
	s.Equal(types.StateSucceeded, op.State)
	s.Equal(types.OperationUpdate, op.Operation)
}
