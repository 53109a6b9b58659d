// Package judgment defines the structured contracts for the pluggable
// reasoning calls the orchestrator depends on: task classification,
// decomposition, evaluation, critique, and memory relevance selection.
// Implementations consume a prompt and return structured output; latency and
// occasional malformed output are expected, so every consumer validates and
// falls back to a conservative default rather than propagating parse errors.
package judgment

import (
	"context"
	"errors"
)

// ErrNoSteps is returned by Decompose when planning produced no steps.
// Decomposition failure is fatal to a task: there is nothing to execute
// without a plan.
var ErrNoSteps = errors.New("decomposition produced no steps")

// Verdict is the judgment attached to one execution attempt of a step.
type Verdict string

const (
	// VerdictPass marks the attempt successful; the step completes.
	VerdictPass Verdict = "PASS"
	// VerdictRetry marks the attempt failed but retryable.
	VerdictRetry Verdict = "RETRY"
	// VerdictFail marks the attempt failed and unrecoverable.
	VerdictFail Verdict = "FAIL"
)

// Valid returns true if the verdict is a known value.
func (v Verdict) Valid() bool {
	return v == VerdictPass || v == VerdictRetry || v == VerdictFail
}

// PlannedStep is one entry of a decomposition plan.
type PlannedStep struct {
	// Number is the 1-based sequence number of the step.
	Number int `json:"step"`
	// Instruction is the atomic instruction text.
	Instruction string `json:"instruction"`
}

// Assessment is the strategic classification of a task before planning.
type Assessment struct {
	// ProblemType labels the kind of problem (file_operation, web_research,
	// calculation, data_transformation, system_operation, mixed).
	ProblemType string `json:"problem_type"`
	// Strategy is the suggested high-level approach.
	Strategy string `json:"strategy"`
	// NeedsMemory hints that past experiences should be consulted.
	NeedsMemory bool `json:"needs_memory"`
	// NeedsSearch hints that external information gathering is needed.
	NeedsSearch bool `json:"needs_search"`
	// LikelyTools predicts the tools the task will need.
	LikelyTools []string `json:"likely_tools,omitempty"`
	// Confidence is the classifier's confidence in [0,1].
	Confidence float64 `json:"confidence"`
}

// ConservativeAssessment is the degraded default used when classification
// fails: assume both memory and search are needed and confidence is low.
// A degraded plan is preferable to no plan.
func ConservativeAssessment() *Assessment {
	return &Assessment{
		ProblemType: "mixed",
		Strategy:    "proceed cautiously without a strategic assessment",
		NeedsMemory: true,
		NeedsSearch: true,
		Confidence:  0.3,
	}
}

// Evaluation is the structured verdict for one step execution attempt.
type Evaluation struct {
	// Verdict is the pass/retry/fail outcome.
	Verdict Verdict `json:"verdict"`
	// Reason explains the verdict.
	Reason string `json:"reason"`
	// Suggestions carries specific changes to try on retry.
	Suggestions string `json:"suggestions,omitempty"`
}

// Critique is the structured post-mortem of a task's execution. It feeds both
// the recovery decision tree and long-term memory updates.
type Critique struct {
	// WhatWorked lists strategies that succeeded.
	WhatWorked []string `json:"what_worked,omitempty"`
	// WhatFailed lists failures and mistakes.
	WhatFailed []string `json:"what_failed,omitempty"`
	// RootCauses lists why failures happened.
	RootCauses []string `json:"root_causes,omitempty"`
	// Lessons lists key takeaways.
	Lessons []string `json:"lessons,omitempty"`
	// ConfidenceUpdates maps pattern labels to confidence deltas.
	ConfidenceUpdates map[string]float64 `json:"confidence_updates,omitempty"`
	// ImprovementSuggestions lists how to do better next time.
	ImprovementSuggestions []string `json:"improvement_suggestions,omitempty"`
	// PatternQuality scores how reusable this pattern is, in [0,1].
	// Zero means the critique carried no quality signal.
	PatternQuality float64 `json:"pattern_quality,omitempty"`
	// SuggestedAction optionally names a recovery action outright.
	SuggestedAction string `json:"suggested_action,omitempty"`
}

// FreeText concatenates the critique's prose fields for keyword scanning.
func (c *Critique) FreeText() string {
	var out string
	for _, group := range [][]string{c.WhatFailed, c.RootCauses, c.ImprovementSuggestions} {
		for _, s := range group {
			out += s + "\n"
		}
	}
	return out
}

// TaskTrace is the input handed to Critique: the full step history of a task.
type TaskTrace struct {
	// TaskID is the id of the task being critiqued.
	TaskID string `json:"task_id"`
	// Input is the original task text.
	Input string `json:"input"`
	// Succeeded reports whether the task reached completed status.
	Succeeded bool `json:"succeeded"`
	// Error is the terminal task error, if any.
	Error string `json:"error,omitempty"`
	// Steps summarizes each step's instruction, status, and error.
	Steps []TraceStep `json:"steps"`
}

// TraceStep is one step summary within a TaskTrace.
type TraceStep struct {
	Number      int    `json:"number"`
	Instruction string `json:"instruction"`
	Status      string `json:"status"`
	Worker      string `json:"worker,omitempty"`
	Error       string `json:"error,omitempty"`
	RetryCount  int    `json:"retry_count"`
}

// Classifier produces the strategic assessment of a task.
type Classifier interface {
	// Classify analyzes the task text before planning begins.
	Classify(ctx context.Context, taskText string) (*Assessment, error)
}

// Decomposer turns a task into an ordered list of atomic instructions.
type Decomposer interface {
	// Decompose returns the ordered plan for the task, or ErrNoSteps.
	Decompose(ctx context.Context, taskText string) ([]PlannedStep, error)
}

// Evaluator judges one step execution attempt.
type Evaluator interface {
	// Evaluate returns the verdict for the attempt. Implementations degrade
	// malformed output to RETRY while retries remain, else FAIL.
	Evaluate(ctx context.Context, instruction string, result *WorkerOutcome, retryCount int) (*Evaluation, error)
}

// Critic produces the structured post-mortem over a task trace.
type Critic interface {
	// Critique analyzes a finished or failing task.
	Critique(ctx context.Context, trace *TaskTrace) (*Critique, error)
}

// Selector picks the most semantically relevant memory candidates by id.
type Selector interface {
	// SelectRelevant returns up to limit ids from candidates, most relevant
	// to the task text first.
	SelectRelevant(ctx context.Context, taskText string, candidates []Candidate, limit int) ([]string, error)
}

// Candidate is one memory candidate offered to the Selector.
type Candidate struct {
	ID         string  `json:"id"`
	Pattern    string  `json:"pattern"`
	Task       string  `json:"task"`
	Strategy   string  `json:"strategy"`
	Confidence float64 `json:"confidence"`
	TimesUsed  int     `json:"times_used"`
}

// WorkerOutcome is the slice of a worker result the evaluator needs.
type WorkerOutcome struct {
	Success  bool              `json:"success"`
	Output   string            `json:"output"`
	Error    string            `json:"error,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Service bundles every judgment call the orchestrator consumes.
type Service interface {
	Classifier
	Decomposer
	Evaluator
	Critic
	Selector
}
