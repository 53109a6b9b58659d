package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Failure categories attached to trace metrics.
const (
	FailureFileNotFound    = "FILE_NOT_FOUND"
	FailureSyntaxError     = "SYNTAX_ERROR"
	FailureCommandNotFound = "COMMAND_NOT_FOUND"
	FailureUnknown         = "UNKNOWN"
)

// ClassifyFailure buckets an error string into a coarse failure category.
// An empty error yields an empty category.
func ClassifyFailure(errText string) string {
	if errText == "" {
		return ""
	}
	e := strings.ToLower(errText)
	switch {
	case strings.Contains(e, "no such file"):
		return FailureFileNotFound
	case strings.Contains(e, "syntax error"), strings.Contains(e, "syntaxerror"):
		return FailureSyntaxError
	case strings.Contains(e, "command not found"), strings.Contains(e, "executable file not found"):
		return FailureCommandNotFound
	default:
		return FailureUnknown
	}
}

// TraceFailure is one failed attempt recorded in a trace.
type TraceFailure struct {
	StepNumber int    `json:"step_number"`
	Error      string `json:"error"`
	Category   string `json:"category"`
}

// TraceAttempt records one execution attempt of one step.
type TraceAttempt struct {
	StepNumber  int       `json:"step_number"`
	Attempt     int       `json:"attempt"`
	Instruction string    `json:"instruction"`
	Worker      string    `json:"worker,omitempty"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	Verdict     string    `json:"verdict"`
	Reason      string    `json:"reason,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Trace is the per-task artifact exported once the task reaches a terminal
// status. It carries everything an offline analysis needs.
type Trace struct {
	TaskID         string         `json:"task_id"`
	Input          string         `json:"input"`
	Status         string         `json:"status"`
	Error          string         `json:"error,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	DurationSec    float64        `json:"duration_sec"`
	TotalSteps     int            `json:"total_steps"`
	CompletedSteps int            `json:"completed_steps"`
	SkippedSteps   int            `json:"skipped_steps"`
	Retries        int            `json:"retries"`
	Failures       []TraceFailure `json:"failures"`
	Attempts       []TraceAttempt `json:"step_traces"`
	MemoriesUsed   []string       `json:"memories_used"`
	CreatedFiles   []string       `json:"created_files"`
	SearchDecision string         `json:"search_decision,omitempty"`
	SearchReason   string         `json:"search_reason,omitempty"`
}

// NewTrace starts a trace for a task.
func NewTrace(taskID, input string) *Trace {
	return &Trace{
		TaskID:    taskID,
		Input:     input,
		StartedAt: time.Now(),
	}
}

// RecordAttempt appends one execution attempt and tallies retries and
// failures as it goes.
func (t *Trace) RecordAttempt(a TraceAttempt) {
	a.Timestamp = time.Now()
	t.Attempts = append(t.Attempts, a)
	if a.Attempt > 0 {
		t.Retries++
	}
	if !a.Success {
		t.Failures = append(t.Failures, TraceFailure{
			StepNumber: a.StepNumber,
			Error:      a.Error,
			Category:   ClassifyFailure(a.Error),
		})
	}
}

// RecordCreatedFile tracks a file produced during execution, deduplicated.
func (t *Trace) RecordCreatedFile(name string) {
	for _, f := range t.CreatedFiles {
		if f == name {
			return
		}
	}
	t.CreatedFiles = append(t.CreatedFiles, name)
}

// TraceExporter writes terminal-task traces to a directory as JSON.
type TraceExporter struct {
	dir string
}

// NewTraceExporter creates an exporter writing into dir.
func NewTraceExporter(dir string) *TraceExporter {
	return &TraceExporter{dir: dir}
}

// Export finalizes the trace duration and writes it to
// <dir>/task_<id>.json, creating the directory if needed.
func (e *TraceExporter) Export(trace *Trace) (string, error) {
	trace.DurationSec = float64(int(time.Since(trace.StartedAt).Seconds()*100)) / 100

	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("create traces directory: %w", err)
	}

	data, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal trace: %w", err)
	}

	path := filepath.Join(e.dir, fmt.Sprintf("task_%s.json", trace.TaskID))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write trace: %w", err)
	}
	return path, nil
}
