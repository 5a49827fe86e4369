// Package scripting provides expression evaluation for task parameters.
package scripting

// ExpressionEvaluator resolves ${...} expressions against an execution
// context. Strings that are not expressions pass through unchanged.
type ExpressionEvaluator interface {
	// Evaluate processes an expression string with the given context
	Evaluate(expression string, context map[string]interface{}) (interface{}, error)
}

// EvaluateParams applies the evaluator to every string value in the
// parameter map, recursing into nested maps and slices. The input map is
// never mutated.
func EvaluateParams(eval ExpressionEvaluator, params map[string]interface{}, context map[string]interface{}) (map[string]interface{}, error) {
	if params == nil {
		return nil, nil
	}

	result := make(map[string]interface{}, len(params))
	for key, value := range params {
		evaluated, err := evaluateValue(eval, value, context)
		if err != nil {
			return nil, err
		}
		result[key] = evaluated
	}
	return result, nil
}

func evaluateValue(eval ExpressionEvaluator, value interface{}, context map[string]interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return eval.Evaluate(v, context)
	case map[string]interface{}:
		return EvaluateParams(eval, v, context)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			evaluated, err := evaluateValue(eval, item, context)
			if err != nil {
				return nil, err
			}
			out[i] = evaluated
		}
		return out, nil
	default:
		return value, nil
	}
}
