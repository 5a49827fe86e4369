package scripting

import (
	"fmt"
	"strings"
)

// PathExpressionEvaluator resolves dotted variable references like
// ${fetch.summary.total} by walking the context maps. It supports no
// operators; use the JS evaluator for computed expressions.
type PathExpressionEvaluator struct{}

// NewPathExpressionEvaluator creates a new PathExpressionEvaluator
func NewPathExpressionEvaluator() *PathExpressionEvaluator {
	return &PathExpressionEvaluator{}
}

// Evaluate processes an expression string with the given context
func (e *PathExpressionEvaluator) Evaluate(expression string, context map[string]interface{}) (interface{}, error) {
	if !strings.HasPrefix(expression, "${") || !strings.HasSuffix(expression, "}") {
		return expression, nil
	}

	expr := expression[2 : len(expression)-1]

	current := context
	parts := strings.Split(expr, ".")
	for i, part := range parts {
		value, ok := current[part]
		if !ok {
			return nil, fmt.Errorf("variable not found: %s", expr)
		}
		if i == len(parts)-1 {
			return value, nil
		}

		next, ok := value.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("cannot navigate path %s: %s is not a map", expr, part)
		}
		current = next
	}

	return nil, fmt.Errorf("variable not found: %s", expr)
}
