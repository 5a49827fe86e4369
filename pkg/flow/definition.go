// Package flow defines the data model for flow definitions and executions.
package flow

import "fmt"

// EndMarker is the reserved target value that terminates a flow.
const EndMarker = "end"

// Definition describes a flow: a set of named tasks plus the conditions
// that route between them. A Definition is immutable once loaded.
type Definition struct {
	// ID is the unique identifier of the flow
	ID string `json:"id" yaml:"id"`

	// Name is the display label of the flow
	Name string `json:"name" yaml:"name"`

	// StartTask is the name of the first task to run
	StartTask string `json:"start_task" yaml:"start_task"`

	// Tasks are the tasks that make up the flow
	Tasks []TaskSpec `json:"tasks" yaml:"tasks"`

	// Conditions route between tasks based on their outcome
	Conditions []ConditionSpec `json:"conditions" yaml:"conditions"`
}

// TaskSpec describes a single task within a flow
type TaskSpec struct {
	// Name of the task, unique within the flow
	Name string `json:"name" yaml:"name"`

	// Description of what the task does
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// TaskType selects the registered task implementation
	TaskType string `json:"task_type" yaml:"task_type"`

	// Parameters are passed to the task implementation
	Parameters map[string]interface{} `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// ConditionSpec routes from a source task to the next task depending on
// the source task's outcome
type ConditionSpec struct {
	// Name of the condition
	Name string `json:"name" yaml:"name"`

	// Description of the condition
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// SourceTask is the task whose outcome this condition inspects
	SourceTask string `json:"source_task" yaml:"source_task"`

	// Outcome is the status being matched ("success" or "failure")
	Outcome string `json:"outcome" yaml:"outcome"`

	// TargetTaskSuccess is the next task when the outcome matches
	TargetTaskSuccess string `json:"target_task_success" yaml:"target_task_success"`

	// TargetTaskFailure is the next task when the outcome does not match
	TargetTaskFailure string `json:"target_task_failure" yaml:"target_task_failure"`
}

// TaskByName returns the task spec with the given name, or nil
func (d *Definition) TaskByName(name string) *TaskSpec {
	for i := range d.Tasks {
		if d.Tasks[i].Name == name {
			return &d.Tasks[i]
		}
	}
	return nil
}

// ConditionForTask returns the condition whose source is the given task,
// or nil when the task has no routing condition. A task has at most one
// condition; when the definition carries more than one the first declared
// wins (Validate rejects duplicates before execution).
func (d *Definition) ConditionForTask(name string) *ConditionSpec {
	for i := range d.Conditions {
		if d.Conditions[i].SourceTask == name {
			return &d.Conditions[i]
		}
	}
	return nil
}

// Validate checks the structural invariants of a flow definition. It
// returns a *DefinitionError describing the first violation found.
func (d *Definition) Validate() error {
	if d.ID == "" {
		return &DefinitionError{Reason: "flow id is required"}
	}

	if len(d.Tasks) == 0 {
		return &DefinitionError{Reason: "flow must declare at least one task"}
	}

	// Task names must be unique
	names := make(map[string]bool, len(d.Tasks))
	for _, task := range d.Tasks {
		if task.Name == "" {
			return &DefinitionError{Reason: "task name is required"}
		}
		if task.TaskType == "" {
			return &DefinitionError{Reason: fmt.Sprintf("task %q has no task_type", task.Name)}
		}
		if names[task.Name] {
			return &DefinitionError{Reason: fmt.Sprintf("duplicate task name %q", task.Name)}
		}
		names[task.Name] = true
	}

	// The start task must reference a declared task
	if d.StartTask == "" {
		return &DefinitionError{Reason: "start_task is required"}
	}
	if !names[d.StartTask] {
		return &DefinitionError{Reason: fmt.Sprintf("start_task %q is not defined in tasks", d.StartTask)}
	}

	// Conditions must reference declared tasks, one condition per source
	sources := make(map[string]bool, len(d.Conditions))
	for _, cond := range d.Conditions {
		if !names[cond.SourceTask] {
			return &DefinitionError{Reason: fmt.Sprintf("condition %q references unknown source_task %q", cond.Name, cond.SourceTask)}
		}
		if sources[cond.SourceTask] {
			return &DefinitionError{Reason: fmt.Sprintf("task %q has more than one condition", cond.SourceTask)}
		}
		sources[cond.SourceTask] = true

		switch cond.Outcome {
		case "", "success", "failure":
		default:
			return &DefinitionError{Reason: fmt.Sprintf("condition %q has unknown outcome %q", cond.Name, cond.Outcome)}
		}

		// An empty target terminates the flow, same as the end marker
		for _, target := range []string{cond.TargetTaskSuccess, cond.TargetTaskFailure} {
			if target != "" && target != EndMarker && !names[target] {
				return &DefinitionError{Reason: fmt.Sprintf("condition %q targets unknown task %q", cond.Name, target)}
			}
		}
	}

	return nil
}
