package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowman-io/flowman/pkg/flow"
)

func TestConditionEvaluatorNextTask(t *testing.T) {
	eval := ConditionEvaluator{}

	success := flow.TaskResult{Status: flow.TaskSuccess}
	failure := flow.TaskResult{Status: flow.TaskFailure}
	skipped := flow.TaskResult{Status: flow.TaskSkipped}

	cond := func(outcome, onSuccess, onFailure string) *flow.ConditionSpec {
		return &flow.ConditionSpec{
			Name:              "c",
			SourceTask:        "src",
			Outcome:           outcome,
			TargetTaskSuccess: onSuccess,
			TargetTaskFailure: onFailure,
		}
	}

	t.Run("nil condition terminates", func(t *testing.T) {
		assert.True(t, eval.NextTask(success, nil).Terminate)
		assert.True(t, eval.NextTask(failure, nil).Terminate)
	})

	t.Run("success polarity", func(t *testing.T) {
		c := cond("success", "next", "recover")
		assert.Equal(t, Continue("next"), eval.NextTask(success, c))
		assert.Equal(t, Continue("recover"), eval.NextTask(failure, c))
	})

	t.Run("failure polarity inverts the branches", func(t *testing.T) {
		c := cond("failure", "recover", "next")
		assert.Equal(t, Continue("recover"), eval.NextTask(failure, c))
		assert.Equal(t, Continue("next"), eval.NextTask(success, c))
	})

	t.Run("empty outcome routes on result status", func(t *testing.T) {
		c := cond("", "next", "recover")
		assert.Equal(t, Continue("next"), eval.NextTask(success, c))
		assert.Equal(t, Continue("recover"), eval.NextTask(failure, c))
	})

	t.Run("skipped takes the failure branch", func(t *testing.T) {
		assert.Equal(t, Continue("recover"), eval.NextTask(skipped, cond("success", "next", "recover")))
		assert.Equal(t, Continue("recover"), eval.NextTask(skipped, cond("", "next", "recover")))
		// Under failure polarity a skip is not a failure either
		assert.Equal(t, Continue("recover"), eval.NextTask(skipped, cond("failure", "next", "recover")))
	})

	t.Run("end marker terminates", func(t *testing.T) {
		assert.True(t, eval.NextTask(success, cond("success", flow.EndMarker, "recover")).Terminate)
		assert.True(t, eval.NextTask(failure, cond("success", "next", flow.EndMarker)).Terminate)
	})

	t.Run("empty target terminates", func(t *testing.T) {
		assert.True(t, eval.NextTask(success, cond("success", "", "recover")).Terminate)
	})
}
