package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowman-io/flowman/pkg/engine"
	"github.com/flowman-io/flowman/pkg/flow"
	"github.com/flowman-io/flowman/pkg/logging"
	"github.com/flowman-io/flowman/pkg/storage"
)

type tickTask struct{}

func (tickTask) Execute(ctx context.Context, execCtx map[string]interface{}) flow.TaskResult {
	return flow.TaskResult{Status: flow.TaskSuccess}
}

func newSchedulerFixture(t *testing.T) (*Scheduler, *engine.Engine, storage.FlowStore) {
	t.Helper()

	logger := logging.NewTestLogger()
	registry := engine.NewTaskRegistry(logger)
	registry.Register("tick", func(name string, params map[string]interface{}) (engine.Task, error) {
		return tickTask{}, nil
	})

	provider := storage.NewMemoryProvider()
	eng := engine.NewEngine(registry, logger)
	return NewScheduler(eng, provider.GetFlowStore(), logger), eng, provider.GetFlowStore()
}

func tickDefinition() flow.Definition {
	return flow.Definition{
		ID:        "heartbeat",
		StartTask: "tick",
		Tasks:     []flow.TaskSpec{{Name: "tick", TaskType: "tick"}},
	}
}

func TestSchedulerSchedule(t *testing.T) {
	sched, _, flowStore := newSchedulerFixture(t)
	require.NoError(t, flowStore.SaveFlow(tickDefinition()))

	require.NoError(t, sched.Schedule("heartbeat", "@hourly"))
	assert.Equal(t, []string{"heartbeat"}, sched.ScheduledFlows())

	// Rescheduling replaces the previous entry instead of stacking
	require.NoError(t, sched.Schedule("heartbeat", "@daily"))
	assert.Len(t, sched.ScheduledFlows(), 1)

	sched.Unschedule("heartbeat")
	assert.Empty(t, sched.ScheduledFlows())
}

func TestSchedulerInvalidCronExpression(t *testing.T) {
	sched, _, _ := newSchedulerFixture(t)

	err := sched.Schedule("heartbeat", "not a cron spec")
	require.Error(t, err)
	assert.Empty(t, sched.ScheduledFlows())
}

func TestSchedulerTriggersExecution(t *testing.T) {
	sched, eng, flowStore := newSchedulerFixture(t)
	require.NoError(t, flowStore.SaveFlow(tickDefinition()))

	// @every fires on a fixed interval, fast enough for a test
	require.NoError(t, sched.Schedule("heartbeat", "@every 100ms"))
	sched.Start()
	defer sched.Stop()

	require.Eventually(t, func() bool {
		for _, state := range eng.ListExecutions() {
			if state.FlowID == "heartbeat" && state.Status == flow.ExecutionCompleted {
				return true
			}
		}
		return false
	}, 3*time.Second, 25*time.Millisecond)
}

func TestSchedulerMissingFlowIsLoggedNotFatal(t *testing.T) {
	sched, eng, _ := newSchedulerFixture(t)

	require.NoError(t, sched.Schedule("ghost", "@every 50ms"))
	sched.Start()
	defer sched.Stop()

	// The trigger finds no flow and gives up without creating executions
	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, eng.ListExecutions())
}
