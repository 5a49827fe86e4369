package scripting

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

// JSExpressionEvaluator evaluates ${...} expressions as JavaScript with
// the execution context bound as global variables. A fresh VM is created
// per evaluation, so the evaluator is safe for concurrent executions.
type JSExpressionEvaluator struct{}

// NewJSExpressionEvaluator creates a new JSExpressionEvaluator
func NewJSExpressionEvaluator() *JSExpressionEvaluator {
	return &JSExpressionEvaluator{}
}

// Evaluate processes an expression string with the given context
func (e *JSExpressionEvaluator) Evaluate(expression string, context map[string]interface{}) (interface{}, error) {
	if !strings.HasPrefix(expression, "${") || !strings.HasSuffix(expression, "}") {
		return expression, nil
	}

	expr := expression[2 : len(expression)-1]

	vm := goja.New()
	for key, value := range context {
		if err := vm.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to bind context variable %q: %w", key, err)
		}
	}
	if err := vm.Set("context", context); err != nil {
		return nil, fmt.Errorf("failed to bind context object: %w", err)
	}

	result, err := vm.RunString(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate expression %q: %w", expr, err)
	}

	return result.Export(), nil
}
