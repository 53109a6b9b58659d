package models

import "time"

// PatternType classifies a memory record by task outcome.
type PatternType string

const (
	// PatternSuccess marks a record learned from a completed task.
	PatternSuccess PatternType = "success"
	// PatternFailure marks a record learned from a failed task.
	PatternFailure PatternType = "failure"
)

// MemoryRecord is one learned task pattern with a confidence score. Records
// are created once per completed task; confidence is mutated in place by later
// learning passes. The core never deletes records.
type MemoryRecord struct {
	// ID is the unique identifier for this record.
	ID string `json:"id"`
	// PatternType classifies the record as a success or failure pattern.
	PatternType PatternType `json:"pattern_type"`
	// TaskPattern is the generalized pattern label (e.g. "file_operation").
	TaskPattern string `json:"task_pattern"`
	// TaskID is the id of the originating task.
	TaskID string `json:"task_id"`
	// TaskDescription is the original task text.
	TaskDescription string `json:"task_description"`
	// Strategy is the strategy text that worked or failed.
	Strategy string `json:"strategy"`
	// ToolsUsed lists the worker/tool identifiers involved.
	ToolsUsed []string `json:"tools_used,omitempty"`
	// StepTrace is the serialized step sequence of the originating task.
	StepTrace string `json:"step_trace,omitempty"`
	// Confidence is the confidence score in [0,1], reused as success rate.
	Confidence float64 `json:"confidence"`
	// TimesUsed counts how often the record has been recalled.
	TimesUsed int `json:"times_used"`
	// LastUsed is when the record was last recalled, if ever.
	LastUsed *time.Time `json:"last_used,omitempty"`
	// CreatedAt is when the record was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the record was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// RecencyScore returns the recency decay factor for the record at the given
// time: 1.0 at zero elapsed days, 0.5 at 30 days, floored at 0.1.
func (m *MemoryRecord) RecencyScore(now time.Time) float64 {
	ref := m.CreatedAt
	if m.LastUsed != nil {
		ref = *m.LastUsed
	}
	if ref.IsZero() {
		return 0.5
	}
	days := now.Sub(ref).Hours() / 24
	if days < 0 {
		days = 0
	}
	score := 1.0 / (1.0 + days/30.0)
	if score < 0.1 {
		score = 0.1
	}
	return score
}
