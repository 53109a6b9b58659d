package recovery

import (
	"context"
	"errors"
	"testing"

	"github.com/ShayCichocki/relay/internal/judgment"
	"github.com/ShayCichocki/relay/internal/worker"
	"github.com/ShayCichocki/relay/pkg/models"
)

func TestDecide(t *testing.T) {
	m := NewManager()

	tests := []struct {
		name     string
		critique *judgment.Critique
		want     models.RecoveryAction
	}{
		{
			name:     "explicit valid suggestion used verbatim",
			critique: &judgment.Critique{SuggestedAction: "skip_step"},
			want:     models.ActionSkipStep,
		},
		{
			name:     "invalid suggestion forces abort",
			critique: &judgment.Critique{SuggestedAction: "reboot_universe"},
			want:     models.ActionAbortTask,
		},
		{
			name:     "very low pattern quality aborts",
			critique: &judgment.Critique{PatternQuality: 0.05},
			want:     models.ActionAbortTask,
		},
		{
			name:     "zero pattern quality carries no signal",
			critique: &judgment.Critique{},
			want:     models.ActionRetry,
		},
		{
			name:     "prompt length evidence shrinks the prompt",
			critique: &judgment.Critique{RootCauses: []string{"prompt too long"}},
			want:     models.ActionRetrySmaller,
		},
		{
			name:     "tool evidence switches worker",
			critique: &judgment.Critique{RootCauses: []string{"tool not found"}},
			want:     models.ActionSwitchWorker,
		},
		{
			name:     "syntax evidence retries same worker",
			critique: &judgment.Critique{WhatFailed: []string{"syntax error in generated script"}},
			want:     models.ActionRetry,
		},
		{
			name:     "prompt evidence outranks tool evidence",
			critique: &judgment.Critique{RootCauses: []string{"context length exceeded", "tool misuse"}},
			want:     models.ActionRetrySmaller,
		},
		{
			name: "explicit suggestion outranks pattern quality",
			critique: &judgment.Critique{
				SuggestedAction: "retry",
				PatternQuality:  0.05,
			},
			want: models.ActionRetry,
		},
		{
			name:     "nil critique defaults to retry",
			critique: nil,
			want:     models.ActionRetry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Decide(tt.critique)
			if got.Action != tt.want {
				t.Errorf("Decide() = %q (%s), want %q", got.Action, got.Reason, tt.want)
			}
			if got.Reason == "" {
				t.Error("Decide() returned empty reason")
			}
		})
	}
}

type scriptedWorker struct {
	role    string
	succeed bool
	err     error
	panics  bool
	calls   int
}

func (s *scriptedWorker) Role() string { return s.role }
func (s *scriptedWorker) ID() string   { return s.role + "-1" }

func (s *scriptedWorker) Execute(ctx context.Context, instruction string, taskContext map[string]string) (*models.WorkerResult, error) {
	s.calls++
	if s.panics {
		panic("broken worker")
	}
	if s.err != nil {
		return nil, s.err
	}
	return &models.WorkerResult{Success: s.succeed, Output: s.role + " output", WorkerID: s.ID()}, nil
}

func TestSwitchAndExecute(t *testing.T) {
	failed := &scriptedWorker{role: "engineer"}
	researcher := &scriptedWorker{role: "researcher", succeed: false}
	writer := &scriptedWorker{role: "writer", succeed: true}

	reg := worker.NewRegistry()
	reg.Register(failed)
	reg.Register(researcher)
	reg.Register(writer)

	s := NewSwitcher(reg)
	result, role, err := s.SwitchAndExecute(context.Background(), "engineer", "do the step", nil)
	if err != nil {
		t.Fatalf("SwitchAndExecute: %v", err)
	}
	if role != "writer" {
		t.Errorf("recovered role = %q, want writer", role)
	}
	if result.Output != "writer output" {
		t.Errorf("Output = %q", result.Output)
	}
	if failed.calls != 0 {
		t.Error("failed worker was retried by the switcher")
	}
	if researcher.calls != 1 {
		t.Errorf("researcher calls = %d, want 1 (registration order)", researcher.calls)
	}
}

func TestSwitchSkipsErroringWorkers(t *testing.T) {
	erroring := &scriptedWorker{role: "researcher", err: errors.New("boom")}
	panicking := &scriptedWorker{role: "writer", panics: true}
	good := &scriptedWorker{role: "reviewer", succeed: true}

	reg := worker.NewRegistry()
	reg.Register(erroring)
	reg.Register(panicking)
	reg.Register(good)

	s := NewSwitcher(reg)
	_, role, err := s.SwitchAndExecute(context.Background(), "engineer", "do it", nil)
	if err != nil {
		t.Fatalf("SwitchAndExecute: %v", err)
	}
	if role != "reviewer" {
		t.Errorf("recovered role = %q, want reviewer", role)
	}
}

type stubFailures struct {
	counts map[string]int
}

func (s *stubFailures) FailureCount(task, role string) (int, error) {
	return s.counts[role], nil
}

func TestSwitchAvoidsRepeatedlyFailingRoles(t *testing.T) {
	burned := &scriptedWorker{role: "researcher", succeed: true}
	fresh := &scriptedWorker{role: "writer", succeed: true}

	reg := worker.NewRegistry()
	reg.Register(burned)
	reg.Register(fresh)

	s := NewSwitcher(reg)
	s.SetFailureSource(&stubFailures{counts: map[string]int{"researcher": 2}})

	taskContext := map[string]string{"task_description": "create file notes.txt"}
	_, role, err := s.SwitchAndExecute(context.Background(), "engineer", "do the step", taskContext)
	if err != nil {
		t.Fatalf("SwitchAndExecute: %v", err)
	}
	if role != "writer" {
		t.Errorf("recovered role = %q, want writer (researcher has failure history)", role)
	}
	if burned.calls != 0 {
		t.Errorf("researcher was tried despite %d recorded failures", 2)
	}
}

func TestSwitchAvoidanceExhaustsAllRoles(t *testing.T) {
	a := &scriptedWorker{role: "researcher", succeed: true}

	reg := worker.NewRegistry()
	reg.Register(a)

	s := NewSwitcher(reg)
	s.SetFailureSource(&stubFailures{counts: map[string]int{"researcher": 3}})

	taskContext := map[string]string{"task_description": "create file notes.txt"}
	_, _, err := s.SwitchAndExecute(context.Background(), "engineer", "do it", taskContext)
	if !errors.Is(err, ErrNoRecovery) {
		t.Fatalf("err = %v, want ErrNoRecovery when every substitute is avoided", err)
	}
	if a.calls != 0 {
		t.Error("avoided worker was still executed")
	}
}

func TestSwitchExhausted(t *testing.T) {
	a := &scriptedWorker{role: "researcher"}
	b := &scriptedWorker{role: "writer"}

	reg := worker.NewRegistry()
	reg.Register(a)
	reg.Register(b)

	s := NewSwitcher(reg)
	_, _, err := s.SwitchAndExecute(context.Background(), "engineer", "do it", nil)
	if !errors.Is(err, ErrNoRecovery) {
		t.Fatalf("err = %v, want ErrNoRecovery", err)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Errorf("calls = %d/%d, want each worker tried once", a.calls, b.calls)
	}
}
