package flow

import (
	"budgie/internal/types"
	"slices"

	"github.com/google/uuid"
)

// dimension is one named constraint of a fail rule. match reports whether the instance satisfies it;
// a dimension the rule leaves unset is always satisfied.
type dimension struct {
	name  string
	match func(r types.FailRule, inst types.ServiceInstance, catalog types.CatalogLookup) bool
}

// dimensions are evaluated in this order and combined with AND.
var dimensions = []dimension{
	{"instanceIds", func(r types.FailRule, inst types.ServiceInstance, _ types.CatalogLookup) bool {
		return matchIDs(r.InstanceIDs, inst.ID)
	}},
	{"planIds", func(r types.FailRule, inst types.ServiceInstance, _ types.CatalogLookup) bool {
		return matchIDs(r.PlanIDs, inst.PlanID)
	}},
	{"serviceIds", func(r types.FailRule, inst types.ServiceInstance, _ types.CatalogLookup) bool {
		return matchIDs(r.ServiceIDs, inst.ServiceID)
	}},
	{"planNames", func(r types.FailRule, inst types.ServiceInstance, c types.CatalogLookup) bool {
		return matchNames(r.PlanNames, inst.PlanID, c, types.CatalogLookup.PlanIDByName)
	}},
	{"serviceNames", func(r types.FailRule, inst types.ServiceInstance, c types.CatalogLookup) bool {
		return matchNames(r.ServiceNames, inst.ServiceID, c, types.CatalogLookup.ServiceIDByName)
	}},
	{"parametersExpr", func(r types.FailRule, inst types.ServiceInstance, _ types.CatalogLookup) bool {
		return MatchParameters(r.ParametersExpr, inst.Parameters)
	}},
}

// RuleMatches reports whether a fail rule applies to the instance: FailAll, or every dimension satisfied.
// The operation type is not checked here.
func RuleMatches(rule types.FailRule, instance types.ServiceInstance, catalog types.CatalogLookup) bool {
	if rule.FailAll {
		return true
	}
	for _, d := range dimensions {
		if !d.match(rule, instance, catalog) {
			return false
		}
	}
	return true
}

// FailureStatus returns the status of the first rule, in list order, that targets op and matches the
// instance.
func FailureStatus(rules []types.FailRule, op types.OperationType, instance types.ServiceInstance,
	catalog types.CatalogLookup) (int, bool) {
	for _, r := range rules {
		if r.OperationType != op {
			continue
		}
		if RuleMatches(r, instance, catalog) {
			return r.Status, true
		}
	}
	return 0, false
}

func matchIDs(ids []uuid.UUID, id uuid.UUID) bool {
	if ids == nil {
		return true
	}
	return slices.Contains(ids, id)
}

// matchNames resolves each name through the catalog; names the catalog does not know resolve to nothing.
func matchNames(names []string, id uuid.UUID, catalog types.CatalogLookup,
	resolve func(types.CatalogLookup, string) (uuid.UUID, bool)) bool {
	if names == nil {
		return true
	}
	if catalog == nil {
		return false
	}
	for _, name := range names {
		if resolved, ok := resolve(catalog, name); ok && resolved == id {
			return true
		}
	}
	return false
}
