package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Panel styles.
var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	retryStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	skippedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

// maxLogLines bounds the log panel.
const maxLogLines = 12

// viewHeader renders the task title line.
func (a *App) viewHeader() string {
	title := titleStyle.Render("relay")
	task := a.input
	if len(task) > 70 {
		task = task[:67] + "..."
	}
	header := fmt.Sprintf("%s  %s", title, task)
	if a.taskID != "" {
		header += dimStyle.Render(fmt.Sprintf("  (%s)", a.taskID))
	}
	return header
}

// viewSteps renders the step list with status glyphs.
func (a *App) viewSteps() string {
	if len(a.steps) == 0 {
		return dimStyle.Render("  Planning...")
	}

	var view string
	for _, row := range a.steps {
		glyph := a.stepGlyph(row)
		line := fmt.Sprintf("  %s Step %d: %s", glyph, row.Number, row.Instruction)
		if row.Retries > 0 {
			line += retryStyle.Render(fmt.Sprintf(" (retry %d)", row.Retries))
		}
		view += line + "\n"
	}
	return view
}

func (a *App) stepGlyph(row *StepRow) string {
	switch row.Status {
	case stepRunning, stepRetrying:
		return a.spin.View()
	case stepCompleted:
		return completedStyle.Render("✓")
	case stepFailed:
		return failedStyle.Render("✗")
	case stepSkipped:
		return skippedStyle.Render("-")
	default:
		return dimStyle.Render("·")
	}
}

// viewLogs renders the most recent log lines.
func (a *App) viewLogs() string {
	if len(a.logs) == 0 {
		return ""
	}

	start := 0
	if len(a.logs) > maxLogLines {
		start = len(a.logs) - maxLogLines
	}

	var view string
	for _, entry := range a.logs[start:] {
		ts := entry.Timestamp.Format("15:04:05")
		view += dimStyle.Render(fmt.Sprintf("  %s [%s] %s", ts, entry.Level, entry.Message)) + "\n"
	}
	return view
}

// viewFooter renders the status line and help text.
func (a *App) viewFooter() string {
	if a.done {
		if a.success {
			return completedStyle.Render("✓ "+a.finalMessage) + dimStyle.Render(" | Press q to exit")
		}
		return failedStyle.Render("✗ "+a.finalMessage) + dimStyle.Render(" | Press q to exit")
	}
	return dimStyle.Render("Press q to quit")
}
