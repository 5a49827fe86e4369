// Package scheduler triggers stored flows on cron schedules.
package scheduler

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/flowman-io/flowman/pkg/engine"
	"github.com/flowman-io/flowman/pkg/logging"
	"github.com/flowman-io/flowman/pkg/storage"
)

// Scheduler runs stored flow definitions on cron expressions
type Scheduler struct {
	cron      *cron.Cron
	engine    *engine.Engine
	flowStore storage.FlowStore
	logger    logging.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID // flow ID -> cron entry
}

// NewScheduler creates a new scheduler
func NewScheduler(eng *engine.Engine, flowStore storage.FlowStore, logger logging.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		engine:    eng,
		flowStore: flowStore,
		logger:    logger,
		entries:   make(map[string]cron.EntryID),
	}
}

// Schedule registers a flow to run on the given cron expression. A flow
// can hold at most one schedule; registering again replaces the old one.
func (s *Scheduler) Schedule(flowID string, spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, exists := s.entries[flowID]; exists {
		s.cron.Remove(old)
		delete(s.entries, flowID)
	}

	id, err := s.cron.AddFunc(spec, func() {
		s.trigger(flowID)
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q for flow %s: %w", spec, flowID, err)
	}

	s.entries[flowID] = id
	s.logger.Info("flow scheduled", logging.F("flow_id", flowID), logging.F("cron", spec))
	return nil
}

// Unschedule removes a flow's schedule if present
func (s *Scheduler) Unschedule(flowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, exists := s.entries[flowID]; exists {
		s.cron.Remove(id)
		delete(s.entries, flowID)
	}
}

// Start begins running scheduled flows
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for triggered runs to finish starting
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// ScheduledFlows returns the flow IDs with an active schedule
func (s *Scheduler) ScheduledFlows() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}

// trigger loads a flow definition and starts a background execution
func (s *Scheduler) trigger(flowID string) {
	def, err := s.flowStore.GetFlow(flowID)
	if err != nil {
		s.logger.Error("scheduled flow not found", logging.F("flow_id", flowID), logging.F("error", err.Error()))
		return
	}

	executionID, err := s.engine.CreateExecution(&def)
	if err != nil {
		s.logger.Error("failed to create scheduled execution", logging.F("flow_id", flowID), logging.F("error", err.Error()))
		return
	}

	if err := s.engine.RunAsync(executionID); err != nil {
		s.logger.Error("failed to start scheduled execution", logging.F("flow_id", flowID), logging.F("error", err.Error()))
		return
	}

	s.logger.LogFlowExecution(flowID, executionID, "scheduled", map[string]interface{}{
		"trigger": "cron",
	})
}
