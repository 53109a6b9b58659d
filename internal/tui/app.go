// Package tui provides the terminal user interface for following a running
// task: a live step list, recovery notices, and a scrolling log.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// EventMsg wraps an orchestrator event for the TUI. The TUI deliberately
// consumes plain strings so it never imports the orchestrator package.
type EventMsg struct {
	Type       string
	TaskID     string
	StepNumber int
	Message    string
	Timestamp  time.Time
}

// SessionDoneMsg signals that the task run has finished.
type SessionDoneMsg struct {
	Success bool
	Message string
}

// LogEntry represents one line in the log panel.
type LogEntry struct {
	Timestamp time.Time
	Level     string
	Message   string
}

// StepRow is the display state of one plan step.
type StepRow struct {
	Number      int
	Instruction string
	Status      string
	Retries     int
}

// Step display statuses.
const (
	stepPending   = "pending"
	stepRunning   = "running"
	stepRetrying  = "retrying"
	stepCompleted = "completed"
	stepSkipped   = "skipped"
	stepFailed    = "failed"
)

// App is the main bubbletea model for following a task.
type App struct {
	// taskID is the id of the task being followed.
	taskID string
	// input is the original task text.
	input string
	// steps is the live plan, ordered by step number.
	steps []*StepRow
	// logs is the scrolling event log.
	logs []LogEntry
	// spin animates while the task is running.
	spin spinner.Model
	// width is the terminal width.
	width int
	// height is the terminal height.
	height int
	// quitting indicates the app is shutting down.
	quitting bool
	// done indicates the task run has finished.
	done bool
	// success indicates the finished task completed.
	success bool
	// finalMessage holds the terminal status line.
	finalMessage string
}

// New creates a new App following the given task input.
func New(input string) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return &App{
		input: input,
		spin:  s,
		logs:  make([]LogEntry, 0),
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.spin.Tick
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case EventMsg:
		a.handleEvent(msg)

	case SessionDoneMsg:
		a.done = true
		a.success = msg.Success
		a.finalMessage = msg.Message
	}

	return a, nil
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return "Goodbye!\n"
	}
	return fmt.Sprintf("%s\n\n%s\n%s\n%s", a.viewHeader(), a.viewSteps(), a.viewLogs(), a.viewFooter())
}

// handleEvent applies one orchestrator event to the display state.
func (a *App) handleEvent(msg EventMsg) {
	level := "INFO"

	switch msg.Type {
	case "task_started":
		a.taskID = msg.TaskID

	case "step_started":
		row := a.findOrCreateStep(msg.StepNumber)
		row.Status = stepRunning
		if msg.Message != "" {
			row.Instruction = msg.Message
		}

	case "step_completed":
		a.findOrCreateStep(msg.StepNumber).Status = stepCompleted

	case "step_retrying":
		row := a.findOrCreateStep(msg.StepNumber)
		row.Status = stepRetrying
		row.Retries++
		level = "WARN"

	case "step_skipped":
		a.findOrCreateStep(msg.StepNumber).Status = stepSkipped
		level = "WARN"

	case "recovery":
		level = "WARN"

	case "task_completed":
		a.done = true
		a.success = true
		a.finalMessage = "Task completed successfully"

	case "task_failed":
		if msg.StepNumber > 0 {
			a.findOrCreateStep(msg.StepNumber).Status = stepFailed
		}
		a.done = true
		a.success = false
		a.finalMessage = msg.Message
		level = "ERROR"
	}

	a.logs = append(a.logs, LogEntry{
		Timestamp: msg.Timestamp,
		Level:     level,
		Message:   fmt.Sprintf("%s %s", msg.Type, msg.Message),
	})
}

// findOrCreateStep finds a step row by number or creates a new one, keeping
// the list ordered by step number.
func (a *App) findOrCreateStep(number int) *StepRow {
	for _, row := range a.steps {
		if row.Number == number {
			return row
		}
	}
	row := &StepRow{Number: number, Status: stepPending}
	idx := len(a.steps)
	for i, existing := range a.steps {
		if existing.Number > number {
			idx = i
			break
		}
	}
	a.steps = append(a.steps, nil)
	copy(a.steps[idx+1:], a.steps[idx:])
	a.steps[idx] = row
	return a.steps[idx]
}

// Run starts the TUI application.
func Run(input string) error {
	p := tea.NewProgram(New(input), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// NewProgram creates a bubbletea program that can receive messages via
// Send() while the orchestrator runs in the background.
func NewProgram(input string) (*tea.Program, *App) {
	app := New(input)
	p := tea.NewProgram(app, tea.WithAltScreen())
	return p, app
}
