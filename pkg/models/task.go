package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusRunning indicates the task is being worked on.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusCompleted indicates the task completed successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed.
	TaskStatusFailed TaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is a terminal state.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// StepStatus represents the current state of a step.
type StepStatus string

const (
	// StepStatusPending indicates the step has not started.
	StepStatusPending StepStatus = "pending"
	// StepStatusRunning indicates the step is executing.
	StepStatusRunning StepStatus = "running"
	// StepStatusCompleted indicates the step completed successfully.
	StepStatusCompleted StepStatus = "completed"
	// StepStatusFailed indicates the step failed.
	StepStatusFailed StepStatus = "failed"
	// StepStatusSkipped indicates the step was skipped by a recovery decision.
	StepStatusSkipped StepStatus = "skipped"
	// StepStatusRetrying indicates the step failed an attempt and will retry.
	StepStatusRetrying StepStatus = "retrying"
)

// Valid returns true if the status is a known value.
func (s StepStatus) Valid() bool {
	switch s {
	case StepStatusPending, StepStatusRunning, StepStatusCompleted,
		StepStatusFailed, StepStatusSkipped, StepStatusRetrying:
		return true
	default:
		return false
	}
}

// Terminal returns true if the step can never be re-entered.
func (s StepStatus) Terminal() bool {
	return s == StepStatusCompleted || s == StepStatusSkipped || s == StepStatusFailed
}

// Task represents one end-to-end user request tracked from pending to a
// terminal status. A task exclusively owns its steps.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// Input is the original natural-language request.
	Input string `json:"input"`
	// Status is the current lifecycle state of the task.
	Status TaskStatus `json:"status"`
	// Error contains the terminal error message if the task failed.
	Error string `json:"error,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when the task reached a terminal status, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// Steps is the ordered decomposition of the task.
	Steps []*Step `json:"steps,omitempty"`
}

// Step represents one atomic unit of work derived from a task's decomposition.
type Step struct {
	// ID is the unique identifier for this step.
	ID string `json:"id"`
	// TaskID is the ID of the owning task.
	TaskID string `json:"task_id"`
	// Number is the 1-based sequence number, dense and unique within the task.
	Number int `json:"number"`
	// Instruction is the atomic instruction text for this step.
	Instruction string `json:"instruction"`
	// Status is the current lifecycle state of the step.
	Status StepStatus `json:"status"`
	// Worker is the identifier of the worker that executed this step, if any.
	Worker string `json:"worker,omitempty"`
	// Result is the output payload of the last execution attempt.
	Result string `json:"result,omitempty"`
	// Error is the error text of the last execution attempt.
	Error string `json:"error,omitempty"`
	// RetryCount is the number of attempts consumed so far.
	RetryCount int `json:"retry_count"`
	// CreatedAt is when the step was created.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when the step reached a terminal status, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// WorkerResult is the outcome of a single worker invocation. It is produced
// fresh per invocation and is not persisted independently of the step that
// consumed it.
type WorkerResult struct {
	// Success indicates whether the worker considers the invocation successful.
	Success bool `json:"success"`
	// Output is the textual output of the worker.
	Output string `json:"output"`
	// Metadata carries free-form key/value details (tool name, filenames, ...).
	Metadata map[string]string `json:"metadata,omitempty"`
	// Errors lists error strings accumulated during execution.
	Errors []string `json:"errors,omitempty"`
	// Confidence is the worker's confidence in its output, in [0,1].
	Confidence float64 `json:"confidence"`
	// WorkerID identifies the worker that produced this result.
	WorkerID string `json:"worker_id"`
	// Duration is the wall-clock time the invocation took.
	Duration time.Duration `json:"duration"`
}

// FirstError returns the first error string, or empty if none.
func (r *WorkerResult) FirstError() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0]
}
