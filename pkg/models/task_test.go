package models

import (
	"testing"
	"time"
)

func TestTaskStatus_Valid(t *testing.T) {
	valid := []TaskStatus{TaskStatusPending, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("status %q should be valid", s)
		}
	}
	if TaskStatus("blocked").Valid() {
		t.Error("unknown status should not be valid")
	}
}

func TestTaskStatus_Terminal(t *testing.T) {
	tests := []struct {
		status   TaskStatus
		terminal bool
	}{
		{TaskStatusPending, false},
		{TaskStatusRunning, false},
		{TaskStatusCompleted, true},
		{TaskStatusFailed, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.terminal {
			t.Errorf("%q.Terminal() = %v, want %v", tt.status, got, tt.terminal)
		}
	}
}

func TestStepStatus_Terminal(t *testing.T) {
	tests := []struct {
		status   StepStatus
		terminal bool
	}{
		{StepStatusPending, false},
		{StepStatusRunning, false},
		{StepStatusRetrying, false},
		{StepStatusCompleted, true},
		{StepStatusSkipped, true},
		{StepStatusFailed, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.terminal {
			t.Errorf("%q.Terminal() = %v, want %v", tt.status, got, tt.terminal)
		}
	}
}

func TestWorkerResult_FirstError(t *testing.T) {
	r := &WorkerResult{}
	if r.FirstError() != "" {
		t.Errorf("FirstError on empty result = %q, want empty", r.FirstError())
	}
	r.Errors = []string{"boom", "second"}
	if r.FirstError() != "boom" {
		t.Errorf("FirstError = %q, want %q", r.FirstError(), "boom")
	}
}

func TestRecoveryAction_Valid(t *testing.T) {
	valid := []RecoveryAction{ActionRetry, ActionRetrySmaller, ActionSwitchWorker, ActionSkipStep, ActionAbortTask}
	for _, a := range valid {
		if !a.Valid() {
			t.Errorf("action %q should be valid", a)
		}
	}
	if RecoveryAction("restart_universe").Valid() {
		t.Error("unknown action should not be valid")
	}
}

func TestMemoryRecord_RecencyScore(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	fresh := &MemoryRecord{CreatedAt: now}
	if got := fresh.RecencyScore(now); got != 1.0 {
		t.Errorf("fresh record recency = %f, want 1.0", got)
	}

	month := &MemoryRecord{CreatedAt: now.AddDate(0, 0, -30)}
	if got := month.RecencyScore(now); got < 0.49 || got > 0.51 {
		t.Errorf("30-day record recency = %f, want ~0.5", got)
	}

	ancient := &MemoryRecord{CreatedAt: now.AddDate(-5, 0, 0)}
	if got := ancient.RecencyScore(now); got != 0.1 {
		t.Errorf("ancient record recency = %f, want floor 0.1", got)
	}

	// LastUsed takes precedence over CreatedAt.
	used := now.AddDate(0, 0, -1)
	recent := &MemoryRecord{CreatedAt: now.AddDate(-1, 0, 0), LastUsed: &used}
	if got := recent.RecencyScore(now); got < 0.9 {
		t.Errorf("recently used record recency = %f, want > 0.9", got)
	}
}
