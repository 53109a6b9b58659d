package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/relay/internal/state"
	"github.com/ShayCichocki/relay/pkg/models"
)

var statusTaskID string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent tasks and their outcomes",
	Long: `Display recent tasks from the state database.

Shows each task's status, age, and error if it failed. Use --task to
inspect a single task's step-by-step history.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusTaskID, "task", "", "Show step detail for one task by ID")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	// Try project database first, then global
	dbPath := state.ProjectDBPath(cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		dbPath = state.GlobalDBPath()
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No tasks recorded. Run 'relay run <task>' to start.")
		return nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	if statusTaskID != "" {
		return displayTask(db, statusTaskID)
	}
	return displayRecentTasks(db)
}

func displayRecentTasks(db *state.DB) error {
	tasks, err := db.ListTasks(10)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks recorded. Run 'relay run <task>' to start.")
		return nil
	}

	fmt.Println("Recent Tasks:")
	for _, task := range tasks {
		elapsed := formatDuration(time.Since(task.CreatedAt))
		line := fmt.Sprintf("  %s  %-9s  %s (%s ago)", task.ID, task.Status, truncateText(task.Input, 50), elapsed)
		statusColor(task.Status).Println(line)
		if task.Status == models.TaskStatusFailed && task.Error != "" {
			color.New(color.FgRed).Printf("        %s\n", task.Error)
		}
	}
	return nil
}

func displayTask(db *state.DB, id string) error {
	task, err := db.GetTask(id)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return fmt.Errorf("task %s not found", id)
	}

	statusColor(task.Status).Printf("Task %s [%s]\n", task.ID, task.Status)
	fmt.Printf("  Input: %s\n", task.Input)
	fmt.Printf("  Started: %s ago\n", formatDuration(time.Since(task.CreatedAt)))
	if task.Error != "" {
		fmt.Printf("  Error: %s\n", task.Error)
	}

	if len(task.Steps) == 0 {
		fmt.Println("  Steps: none")
		return nil
	}

	fmt.Println("  Steps:")
	for _, step := range task.Steps {
		line := fmt.Sprintf("    %d. [%s] %s", step.Number, step.Status, step.Instruction)
		if step.RetryCount > 0 {
			line += fmt.Sprintf(" (retries: %d)", step.RetryCount)
		}
		fmt.Println(line)
		if step.Worker != "" {
			fmt.Printf("       worker: %s\n", step.Worker)
		}
		if step.Error != "" {
			fmt.Printf("       error: %s\n", step.Error)
		}
	}
	return nil
}

func statusColor(status models.TaskStatus) *color.Color {
	switch status {
	case models.TaskStatusCompleted:
		return color.New(color.FgGreen)
	case models.TaskStatusFailed:
		return color.New(color.FgRed)
	case models.TaskStatusRunning:
		return color.New(color.FgYellow)
	default:
		return color.New(color.Reset)
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dd", int(d.Hours())/24)
}

func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
