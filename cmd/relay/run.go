package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/relay/internal/config"
	"github.com/ShayCichocki/relay/internal/memory"
	"github.com/ShayCichocki/relay/internal/orchestrator"
	"github.com/ShayCichocki/relay/internal/router"
	"github.com/ShayCichocki/relay/internal/state"
	"github.com/ShayCichocki/relay/internal/tools"
	"github.com/ShayCichocki/relay/internal/worker"
	"github.com/ShayCichocki/relay/pkg/models"
)

var (
	runFollow   bool
	runNoMemory bool
	runTable    string
)

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Run a task with specialist workers",
	Long: `Run a free-text task.

The task is decomposed into atomic steps. Each step is routed to the
specialist best suited for it, executed, and evaluated. Failed steps
go through retry and recovery before the task is given up on.

Examples:
  relay run "create file notes.txt with a summary of the workspace"
  relay run --follow "search for recent Go releases then write a report"
  relay run --routing-table routes.yaml "calculate the first 20 primes"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTask,
}

func init() {
	runCmd.Flags().BoolVar(&runFollow, "follow", false, "Follow task progress in a live terminal display")
	runCmd.Flags().BoolVar(&runNoMemory, "no-memory", false, "Run without recalling or recording memories")
	runCmd.Flags().StringVar(&runTable, "routing-table", "", "YAML routing table overriding the built-in keyword table")
}

func runTask(cmd *cobra.Command, args []string) (retErr error) {
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("PANIC in runTask: %v", r)
		}
	}()

	input := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nReceived interrupt, shutting down...")
		cancel()
	}()

	client, err := createJudgmentClient(cfg)
	if err != nil {
		return err
	}

	workspace := cfg.Execution.Workspace
	if !filepath.IsAbs(workspace) {
		workspace = filepath.Join(cwd, workspace)
	}
	if err := os.MkdirAll(workspace, 0755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}

	toolset := []tools.Tool{
		&tools.FileWriter{Workspace: workspace},
		&tools.FileReader{Workspace: workspace},
		&tools.FileLister{Workspace: workspace},
		&tools.ShellRunner{Workspace: workspace},
	}

	registry := worker.NewRegistry()
	registry.Register(worker.NewResearcher(client, &tools.WebSearch{}))
	registry.Register(worker.NewEngineer(client, toolset))
	registry.Register(worker.NewWriter(client))

	var mem *memory.ConfidenceMemory
	var prefs *memory.Preferences
	if !runNoMemory {
		memPath := cfg.Paths.MemoryDB
		if memPath == "" {
			memPath = memory.ProjectDBPath(cwd)
		}
		store, err := memory.NewStore(memPath)
		if err != nil {
			return fmt.Errorf("open memory store: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(); err != nil {
			return fmt.Errorf("migrate memory store: %w", err)
		}
		mem = memory.NewConfidenceMemory(store, client)
		prefs = memory.NewPreferences(store)
	}

	taskRouter := router.New(prefs)
	tablePath := runTable
	if tablePath == "" {
		tablePath = cfg.Routing.TablePath
	}
	if tablePath != "" {
		table, err := router.LoadTable(tablePath)
		if err != nil {
			return fmt.Errorf("load routing table: %w", err)
		}
		taskRouter.SetTable(table)
		if cfg.Routing.WatchTable {
			stop := make(chan struct{})
			defer close(stop)
			// WatchTable blocks until stop closes, so it runs beside the
			// task instead of in front of it.
			go func() {
				if err := taskRouter.WatchTable(tablePath, stop); err != nil {
					log.Printf("[relay] routing table watch failed: %v", err)
				}
			}()
		}
	}

	statePath := cfg.Paths.StateDB
	if statePath == "" {
		statePath = state.ProjectDBPath(cwd)
	}
	db, err := state.Open(statePath)
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate state database: %w", err)
	}

	tracesDir := cfg.Paths.TracesDir
	if !filepath.IsAbs(tracesDir) {
		tracesDir = filepath.Join(cwd, tracesDir)
	}

	orch := orchestrator.New(client, registry, taskRouter, orchestrator.Options{
		MaxRetries:      cfg.Execution.MaxRetries,
		RetryBackoff:    cfg.Execution.RetryBackoff,
		MaxSteps:        cfg.Execution.MaxSteps,
		MinConfidence:   cfg.Memory.MinConfidence,
		RecallLimit:     cfg.Memory.RecallLimit,
		RecallThreshold: cfg.Memory.RecallThreshold,
	}).WithState(db, state.NewTraceExporter(tracesDir))
	if mem != nil {
		orch.WithMemory(mem, prefs)
	}

	if runFollow {
		return runWithTUI(ctx, orch, input)
	}
	return runHeadless(ctx, orch, input)
}

// runHeadless executes the task and prints a plain-text summary.
func runHeadless(ctx context.Context, orch *orchestrator.Orchestrator, input string) error {
	task, err := orch.Execute(ctx, input)
	if err != nil {
		return fmt.Errorf("execute task: %w", err)
	}

	fmt.Println()
	for _, step := range task.Steps {
		printStepStatus(step)
	}

	fmt.Println()
	if task.Status == models.TaskStatusCompleted {
		color.New(color.FgGreen).Printf("✓ Task %s completed\n", task.ID)
		return nil
	}
	color.New(color.FgRed).Printf("✗ Task %s failed: %s\n", task.ID, task.Error)
	return fmt.Errorf("task failed")
}

func printStepStatus(step *models.Step) {
	switch step.Status {
	case models.StepStatusCompleted:
		color.New(color.FgGreen).Printf("  ✓ Step %d: %s\n", step.Number, step.Instruction)
	case models.StepStatusSkipped:
		color.New(color.FgYellow).Printf("  - Step %d: %s (skipped)\n", step.Number, step.Instruction)
	case models.StepStatusFailed:
		color.New(color.FgRed).Printf("  ✗ Step %d: %s (%s)\n", step.Number, step.Instruction, step.Error)
	default:
		fmt.Printf("  · Step %d: %s (%s)\n", step.Number, step.Instruction, step.Status)
	}
}
