package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/relay/internal/memory"
	"github.com/ShayCichocki/relay/pkg/models"
)

var memoryRecent int

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Show learned patterns and their confidence",
	Long: `Display the confidence memory accumulated across task runs.

Shows counts of success and failure patterns plus the most recent
records with their confidence and usage.`,
	RunE: runMemory,
}

func init() {
	memoryCmd.Flags().IntVar(&memoryRecent, "recent", 10, "Number of recent records to show")
}

func runMemory(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	dbPath := memory.ProjectDBPath(cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		dbPath = memory.GlobalDBPath()
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No memories recorded yet.")
		return nil
	}

	store, err := memory.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open memory store: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate memory store: %w", err)
	}

	counts, err := store.CountByType()
	if err != nil {
		return fmt.Errorf("count memories: %w", err)
	}

	fmt.Printf("Memory: %s\n", store.Path())
	color.New(color.FgGreen).Printf("  Success patterns: %d\n", counts[models.PatternSuccess])
	color.New(color.FgRed).Printf("  Failure patterns: %d\n", counts[models.PatternFailure])

	records, err := store.Recent(memoryRecent)
	if err != nil {
		return fmt.Errorf("list memories: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	fmt.Println("\nRecent records:")
	for _, r := range records {
		age := formatDuration(time.Since(r.CreatedAt))
		fmt.Printf("  %s [%s] conf=%.2f used=%d (%s ago)\n",
			r.ID, r.PatternType, r.Confidence, r.TimesUsed, age)
		fmt.Printf("    task: %s\n", truncateText(r.TaskDescription, 60))
		if r.Strategy != "" {
			fmt.Printf("    strategy: %s\n", truncateText(r.Strategy, 60))
		}
		if len(r.ToolsUsed) > 0 {
			fmt.Printf("    tools: %s\n", strings.Join(r.ToolsUsed, ", "))
		}
	}
	return nil
}
