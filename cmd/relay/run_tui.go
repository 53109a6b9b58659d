package main

import (
	"context"
	"fmt"
	"io"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShayCichocki/relay/internal/orchestrator"
	"github.com/ShayCichocki/relay/internal/tui"
	"github.com/ShayCichocki/relay/pkg/models"
)

// runWithTUI runs the task while a terminal display follows its progress.
func runWithTUI(ctx context.Context, orch *orchestrator.Orchestrator, input string) (retErr error) {
	// Suppress log output while the TUI is active (it corrupts the display)
	originalOutput := log.Writer()
	log.SetOutput(io.Discard)
	defer log.SetOutput(originalOutput)

	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("PANIC in runWithTUI: %v", r)
		}
	}()

	program, _ := tui.NewProgram(input)

	go forwardEventsToTUI(program, orch.Events())

	type runResult struct {
		task *models.Task
		err  error
	}
	orchDone := make(chan runResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				orchDone <- runResult{err: fmt.Errorf("PANIC in orchestrator: %v", r)}
			}
		}()
		task, err := orch.Execute(ctx, input)
		orchDone <- runResult{task: task, err: err}
	}()

	tuiDone := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				tuiDone <- fmt.Errorf("PANIC in TUI: %v", r)
			}
		}()
		_, err := program.Run()
		tuiDone <- err
	}()

	select {
	case result := <-orchDone:
		switch {
		case result.err != nil:
			program.Send(tui.SessionDoneMsg{Success: false, Message: result.err.Error()})
		case result.task.Status == models.TaskStatusCompleted:
			program.Send(tui.SessionDoneMsg{Success: true, Message: "Task completed successfully"})
		default:
			program.Send(tui.SessionDoneMsg{Success: false, Message: result.task.Error})
		}
		// Wait for the user to quit so they can read the result
		<-tuiDone
		if result.err != nil {
			return result.err
		}
		if result.task.Status != models.TaskStatusCompleted {
			return fmt.Errorf("task failed")
		}
		return nil

	case err := <-tuiDone:
		return err
	}
}

// forwardEventsToTUI converts orchestrator events to TUI messages.
func forwardEventsToTUI(program *tea.Program, events <-chan orchestrator.Event) {
	for event := range events {
		program.Send(tui.EventMsg{
			Type:       string(event.Type),
			TaskID:     event.TaskID,
			StepNumber: event.StepNumber,
			Message:    event.Message,
			Timestamp:  event.Timestamp,
		})
	}
}
