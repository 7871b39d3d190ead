package flow

import (
	"budgie/internal/types"

	"github.com/google/uuid"
)

func (s *UnitTestSuite) TestRuleFailAllMatchesAnyInstance() {
	rule := types.FailRule{
		OperationType: types.OperationCreate,
		Status:        400,
		FailAll:       true,
		InstanceIDs:   []uuid.UUID{uuid.New()},
		PlanNames:     []string{"plan2"},
	}
	s.True(RuleMatches(rule, s.newInstance(), s.catalog))

	other := types.ServiceInstance{ID: uuid.New(), ServiceID: service2ID, PlanID: plan3ID}
	status, ok := FailureStatus([]types.FailRule{rule}, types.OperationCreate, other, s.catalog)
	s.True(ok)
	s.Equal(400, status)

	_, ok = FailureStatus([]types.FailRule{rule}, types.OperationUpdate, other, s.catalog)
	s.False(ok)
}

func (s *UnitTestSuite) TestRuleUnconstrainedMatches() {
	rule := types.FailRule{OperationType: types.OperationBind, Status: 500}
	s.True(RuleMatches(rule, s.newInstance(), s.catalog))
}

func (s *UnitTestSuite) TestRuleByIDs() {
	inst := s.newInstance()

	s.True(RuleMatches(types.FailRule{InstanceIDs: []uuid.UUID{uuid.New(), inst.ID}}, inst, s.catalog))
	s.False(RuleMatches(types.FailRule{InstanceIDs: []uuid.UUID{uuid.New()}}, inst, s.catalog))
	s.True(RuleMatches(types.FailRule{PlanIDs: []uuid.UUID{plan1ID}}, inst, s.catalog))
	s.False(RuleMatches(types.FailRule{PlanIDs: []uuid.UUID{plan2ID}}, inst, s.catalog))
	s.True(RuleMatches(types.FailRule{ServiceIDs: []uuid.UUID{service1ID}}, inst, s.catalog))
	s.False(RuleMatches(types.FailRule{ServiceIDs: []uuid.UUID{service2ID}}, inst, s.catalog))

	// An empty list constrains the dimension to nothing.
	s.False(RuleMatches(types.FailRule{InstanceIDs: []uuid.UUID{}}, inst, s.catalog))
}

func (s *UnitTestSuite) TestRuleDimensionsAreCombinedWithAnd() {
	inst := s.newInstance()
	rule := types.FailRule{
		PlanIDs:    []uuid.UUID{plan1ID},
		ServiceIDs: []uuid.UUID{service2ID},
	}
	s.False(RuleMatches(rule, inst, s.catalog))

	rule.ServiceIDs = []uuid.UUID{service1ID}
	s.True(RuleMatches(rule, inst, s.catalog))
}

func (s *UnitTestSuite) TestRuleByPlanName() {
	inst := s.newInstance()
	s.True(RuleMatches(types.FailRule{PlanNames: []string{"plan1"}}, inst, s.catalog))
	s.False(RuleMatches(types.FailRule{PlanNames: []string{"plan2"}}, inst, s.catalog))

	// Unknown names never resolve, so the rule never matches on them.
	s.False(RuleMatches(types.FailRule{PlanNames: []string{"does-not-exist"}}, inst, s.catalog))
	s.True(RuleMatches(types.FailRule{PlanNames: []string{"does-not-exist", "plan1"}}, inst, s.catalog))

	// Without a catalog no name resolves.
	s.False(RuleMatches(types.FailRule{PlanNames: []string{"plan1"}}, inst, nil))
}

func (s *UnitTestSuite) TestRuleByServiceName() {
	inst := s.newInstance()
	s.True(RuleMatches(types.FailRule{ServiceNames: []string{"service1"}}, inst, s.catalog))
	s.False(RuleMatches(types.FailRule{ServiceNames: []string{"service2"}}, inst, s.catalog))
	s.False(RuleMatches(types.FailRule{ServiceNames: []string{"nope"}}, inst, s.catalog))
}

func (s *UnitTestSuite) TestRuleByParametersExpr() {
	inst := s.newInstance()
	s.True(RuleMatches(types.FailRule{ParametersExpr: "size == 'large'"}, inst, s.catalog))
	s.False(RuleMatches(types.FailRule{ParametersExpr: "size == 'small'"}, inst, s.catalog))
	s.True(RuleMatches(types.FailRule{ParametersExpr: "replicas > `2`"}, inst, s.catalog))
	// Non-boolean results do not match.
	s.False(RuleMatches(types.FailRule{ParametersExpr: "size"}, inst, s.catalog))

	inst.Parameters = nil
	s.False(RuleMatches(types.FailRule{ParametersExpr: "size == 'large'"}, inst, s.catalog))
}

func (s *UnitTestSuite) TestFailureStatusFirstMatchWins() {
	inst := s.newInstance()
	rules := []types.FailRule{
		{OperationType: types.OperationDelete, Status: 503, FailAll: true},
		{OperationType: types.OperationCreate, Status: 409, PlanNames: []string{"plan2"}},
		{OperationType: types.OperationCreate, Status: 418, PlanNames: []string{"plan1"}},
		{OperationType: types.OperationCreate, Status: 500, FailAll: true},
	}
	status, ok := FailureStatus(rules, types.OperationCreate, inst, s.catalog)
	s.True(ok)
	s.Equal(418, status)

	status, ok = FailureStatus(rules, types.OperationDelete, inst, s.catalog)
	s.True(ok)
	s.Equal(503, status)

	_, ok = FailureStatus(rules, types.OperationUnbind, inst, s.catalog)
	s.False(ok)
	_, ok = FailureStatus(nil, types.OperationCreate, inst, s.catalog)
	s.False(ok)
}
