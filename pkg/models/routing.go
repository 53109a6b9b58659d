package models

// ExecutionMode describes how a set of workers is dispatched.
type ExecutionMode string

const (
	// ModeSequential runs workers one after another, passing context forward.
	ModeSequential ExecutionMode = "sequential"
	// ModeParallel runs workers concurrently against a context snapshot.
	ModeParallel ExecutionMode = "parallel"
)

// RoutingDecision is the routing computed once per task by the TaskRouter.
// It is immutable after creation.
type RoutingDecision struct {
	// Roles is the ordered, deduplicated list of worker roles required.
	Roles []string `json:"roles"`
	// Mode is the execution mode for the required workers.
	Mode ExecutionMode `json:"mode"`
	// Confidence is the router's confidence in this decision, in [0,1].
	Confidence float64 `json:"confidence"`
	// Reasoning is a human-readable justification for the routing.
	Reasoning string `json:"reasoning"`
}

// WorkerSummary is the per-worker entry in a CoordinationResult.
type WorkerSummary struct {
	// Role is the worker role that was dispatched.
	Role string `json:"role"`
	// WorkerID is the identity of the worker instance, if it ran.
	WorkerID string `json:"worker_id,omitempty"`
	// Success indicates whether the worker succeeded.
	Success bool `json:"success"`
	// Output is the worker's textual output.
	Output string `json:"output,omitempty"`
	// Error is the failure description if the worker failed.
	Error string `json:"error,omitempty"`
	// Confidence is the worker's confidence score.
	Confidence float64 `json:"confidence"`
}

// CoordinationResult is the aggregated outcome of dispatching a task across
// one or more workers. It is derived, not persisted.
type CoordinationResult struct {
	// Success is true iff at least one worker succeeded.
	Success bool `json:"success"`
	// Output is the combined textual output of the successful workers.
	Output string `json:"output"`
	// Workers holds the per-worker result summaries in dispatch order.
	Workers []WorkerSummary `json:"workers"`
	// Mode is the execution mode that was used.
	Mode ExecutionMode `json:"mode"`
	// TotalWorkers is the number of workers dispatched.
	TotalWorkers int `json:"total_workers"`
	// SuccessfulWorkers is the number of workers that succeeded.
	SuccessfulWorkers int `json:"successful_workers"`
	// FailedWorkers is the number of workers that failed.
	FailedWorkers int `json:"failed_workers"`
	// Reasoning reports the routing rationale and success/fail tallies.
	Reasoning string `json:"reasoning"`
}

// RecoveryAction is the remedial action chosen after a step fails.
type RecoveryAction string

const (
	// ActionRetry re-enters the step loop with the same worker.
	ActionRetry RecoveryAction = "retry"
	// ActionRetrySmaller re-enters the step loop with a shrunk prompt.
	ActionRetrySmaller RecoveryAction = "retry_with_smaller_prompt"
	// ActionSwitchWorker retries the step with a different worker.
	ActionSwitchWorker RecoveryAction = "switch_agent"
	// ActionSkipStep marks the step skipped and advances.
	ActionSkipStep RecoveryAction = "skip_step"
	// ActionAbortTask fails the whole task immediately.
	ActionAbortTask RecoveryAction = "abort_task"
)

// Valid returns true if the action is one of the five recognized actions.
func (a RecoveryAction) Valid() bool {
	switch a {
	case ActionRetry, ActionRetrySmaller, ActionSwitchWorker, ActionSkipStep, ActionAbortTask:
		return true
	default:
		return false
	}
}

// RecoveryDecision is the action selected by the recovery manager together
// with the reason it was chosen. It is stateless and derived fresh from each
// critique.
type RecoveryDecision struct {
	// Action is the remedial action to take.
	Action RecoveryAction `json:"action"`
	// Reason explains why this action was selected.
	Reason string `json:"reason"`
}
