package orchestrator

import "time"

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventTaskStarted indicates a task has started execution.
	EventTaskStarted EventType = "task_started"
	// EventPlanCreated indicates decomposition produced a step plan.
	EventPlanCreated EventType = "plan_created"
	// EventStepStarted indicates a step attempt has started.
	EventStepStarted EventType = "step_started"
	// EventStepCompleted indicates a step reached completed status.
	EventStepCompleted EventType = "step_completed"
	// EventStepRetrying indicates a step attempt failed and will retry.
	EventStepRetrying EventType = "step_retrying"
	// EventStepSkipped indicates a recovery decision skipped the step.
	EventStepSkipped EventType = "step_skipped"
	// EventRecovery indicates a recovery decision was made for a failed step.
	EventRecovery EventType = "recovery"
	// EventTaskCompleted indicates a task completed successfully.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed indicates a task failed.
	EventTaskFailed EventType = "task_failed"
)

// Event is a progress notification emitted during task execution.
// The TUI consumes these to render live status.
type Event struct {
	Type       EventType
	TaskID     string
	StepNumber int
	Message    string
	Timestamp  time.Time
}

// emitEvent sends an event to the events channel.
func (o *Orchestrator) emitEvent(event Event) {
	event.Timestamp = time.Now()
	select {
	case o.events <- event:
	default:
		// Channel full, drop event to avoid blocking
	}
}

// Events returns a read-only channel of orchestrator events.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}
