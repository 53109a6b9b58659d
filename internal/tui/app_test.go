package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func send(a *App, msg tea.Msg) *App {
	model, _ := a.Update(msg)
	return model.(*App)
}

func event(typ string, step int, message string) EventMsg {
	return EventMsg{Type: typ, StepNumber: step, Message: message, Timestamp: time.Now()}
}

func TestApp_StepLifecycle(t *testing.T) {
	a := New("create file demo.txt")

	a = send(a, event("task_started", 0, "create file demo.txt"))
	a = send(a, event("step_started", 1, "create file demo.txt"))
	if len(a.steps) != 1 || a.steps[0].Status != stepRunning {
		t.Fatalf("step not running after step_started: %+v", a.steps)
	}

	a = send(a, event("step_retrying", 1, "transient failure"))
	if a.steps[0].Status != stepRetrying || a.steps[0].Retries != 1 {
		t.Errorf("step = %+v, want retrying with 1 retry", a.steps[0])
	}

	a = send(a, event("step_completed", 1, ""))
	if a.steps[0].Status != stepCompleted {
		t.Errorf("step status = %s, want completed", a.steps[0].Status)
	}

	a = send(a, event("task_completed", 0, "task completed"))
	if !a.done || !a.success {
		t.Errorf("done=%t success=%t, want both true", a.done, a.success)
	}
}

func TestApp_StepsStayOrdered(t *testing.T) {
	a := New("multi step task")
	a = send(a, event("step_started", 3, "third"))
	a = send(a, event("step_started", 1, "first"))
	a = send(a, event("step_started", 2, "second"))

	for i, row := range a.steps {
		if row.Number != i+1 {
			t.Fatalf("steps out of order: position %d has number %d", i, row.Number)
		}
	}
}

func TestApp_TaskFailedMarksStep(t *testing.T) {
	a := New("doomed task")
	a = send(a, event("step_started", 1, "doomed step"))
	a = send(a, event("task_failed", 1, "step 1 exhausted retries"))

	if a.steps[0].Status != stepFailed {
		t.Errorf("step status = %s, want failed", a.steps[0].Status)
	}
	if !a.done || a.success {
		t.Errorf("done=%t success=%t, want done and not success", a.done, a.success)
	}
	if a.finalMessage != "step 1 exhausted retries" {
		t.Errorf("final message = %q", a.finalMessage)
	}
}

func TestApp_ViewShowsTerminalStatus(t *testing.T) {
	a := New("create file demo.txt")
	a = send(a, event("step_started", 1, "create file demo.txt"))
	a = send(a, event("step_completed", 1, ""))
	a = send(a, SessionDoneMsg{Success: true, Message: "Task completed successfully"})

	view := a.View()
	if !strings.Contains(view, "Task completed successfully") {
		t.Errorf("view missing final message:\n%s", view)
	}
	if !strings.Contains(view, "Step 1") {
		t.Errorf("view missing step list:\n%s", view)
	}
}

func TestApp_QuitKey(t *testing.T) {
	a := New("task")
	model, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q should produce a quit command")
	}
	if !model.(*App).quitting {
		t.Error("quitting flag not set")
	}
}
