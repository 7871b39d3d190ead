package flow

import (
	"fmt"

	"github.com/jmespath/go-jmespath"
	log "github.com/sirupsen/logrus"
)

// compiled returns the compiled form of a JMESPath expression, from cache when possible.
func compiled(expression string) (*jmespath.JMESPath, error) {
	if c, ok := exprCache.Get(expression); ok {
		return c, nil
	}
	c, err := jmespath.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("jmespath: %w", err)
	}
	if exprCache.Len() > 1024 {
		exprCache.Purge()
	}
	exprCache.Set(expression, c, exprCacheTTL)
	return c, nil
}

// EvalAny returns the raw value selected by the JMESPath expression.
// It will return nil and no error if the expression does not match anything.
func EvalAny(expression string, payload map[string]any) (any, error) {
	c, err := compiled(expression)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		payload = map[string]any{}
	}
	v, err := c.Search(payload)
	if err != nil {
		return nil, fmt.Errorf("jmespath: %w", err)
	}
	return v, nil
}

// MatchParameters reports whether the expression yields boolean true for the given parameters.
// An empty expression matches everything; evaluation errors and non-boolean results never match.
func MatchParameters(expression string, parameters map[string]any) bool {
	if expression == "" {
		return true
	}
	v, err := EvalAny(expression, parameters)
	if err != nil {
		log.WithError(err).WithField("expr", expression).Warn("parameters expression failed")
		return false
	}
	matched, ok := v.(bool)
	return ok && matched
}
