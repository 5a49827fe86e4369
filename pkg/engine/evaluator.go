package engine

import "github.com/flowman-io/flowman/pkg/flow"

// Step is the routing decision produced by the condition evaluator after
// a task completes: either continue to a named task or terminate the flow.
type Step struct {
	// Next is the name of the next task to run when Terminate is false
	Next string

	// Terminate indicates the flow stops after the just-completed task
	Terminate bool
}

// Continue produces a step that moves to the named task
func Continue(next string) Step {
	return Step{Next: next}
}

// Terminate produces a step that ends the flow
func Terminate() Step {
	return Step{Terminate: true}
}

// ConditionEvaluator decides the next task from a completed task's result
// and its declared condition
type ConditionEvaluator struct{}

// NextTask evaluates the condition against the task result. A nil
// condition terminates the flow: a task without routing is the end of its
// chain regardless of outcome.
//
// The condition's Outcome field sets the polarity of the match: with
// "success", a successful result follows TargetTaskSuccess and any other
// status follows TargetTaskFailure; with "failure" the branches are
// inverted, so a failed result follows TargetTaskSuccess. An empty or
// unrecognized outcome falls back to routing on the result status alone.
// A skipped task never matches either polarity and routes through the
// failure branch.
func (ConditionEvaluator) NextTask(result flow.TaskResult, cond *flow.ConditionSpec) Step {
	if cond == nil {
		return Terminate()
	}

	var target string
	switch cond.Outcome {
	case "success":
		if result.Status == flow.TaskSuccess {
			target = cond.TargetTaskSuccess
		} else {
			target = cond.TargetTaskFailure
		}
	case "failure":
		if result.Status == flow.TaskFailure {
			target = cond.TargetTaskSuccess
		} else {
			target = cond.TargetTaskFailure
		}
	default:
		if result.Status == flow.TaskSuccess {
			target = cond.TargetTaskSuccess
		} else {
			target = cond.TargetTaskFailure
		}
	}

	if target == flow.EndMarker || target == "" {
		return Terminate()
	}
	return Continue(target)
}
