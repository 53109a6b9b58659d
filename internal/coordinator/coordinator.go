// Package coordinator dispatches a single instruction across multiple
// specialist workers and folds their results into one outcome.
package coordinator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/ShayCichocki/relay/internal/router"
	"github.com/ShayCichocki/relay/internal/worker"
	"github.com/ShayCichocki/relay/pkg/models"
)

// Coordinator routes an instruction to specialist workers and aggregates
// their outputs. A Coordinator is safe for concurrent use.
type Coordinator struct {
	registry *worker.Registry
	router   *router.TaskRouter
}

// New creates a Coordinator over the given worker registry and router.
func New(registry *worker.Registry, taskRouter *router.TaskRouter) *Coordinator {
	return &Coordinator{registry: registry, router: taskRouter}
}

// Coordinate routes the instruction, dispatches the selected workers in the
// decided mode, and aggregates. The taskContext map is never mutated; workers
// in sequential mode see a copy that accumulates earlier outputs.
func (c *Coordinator) Coordinate(ctx context.Context, instruction string, taskContext map[string]string) *models.CoordinationResult {
	decision := c.router.Route(instruction)
	log.Printf("[coordinator] dispatching %d workers in %s mode", len(decision.Roles), decision.Mode)

	var summaries []models.WorkerSummary
	if decision.Mode == models.ModeParallel {
		summaries = c.runParallel(ctx, instruction, taskContext, decision.Roles)
	} else {
		summaries = c.runSequential(ctx, instruction, taskContext, decision.Roles)
	}

	return aggregate(summaries, decision.Mode, decision.Reasoning)
}

// runSequential executes workers one at a time in role order, feeding each
// worker the outputs of the ones before it. A missing or failing worker is
// recorded and the remaining workers still run.
func (c *Coordinator) runSequential(ctx context.Context, instruction string, taskContext map[string]string, roles []string) []models.WorkerSummary {
	execContext := copyContext(taskContext)
	summaries := make([]models.WorkerSummary, 0, len(roles))

	for _, role := range roles {
		summary := c.runOne(ctx, role, instruction, execContext)
		summaries = append(summaries, summary)

		execContext[role+"_output"] = summary.Output
		execContext[role+"_success"] = fmt.Sprintf("%t", summary.Success)
	}
	return summaries
}

// runParallel fans the workers out concurrently against a shared snapshot of
// the task context. Workers cannot see each other's outputs; results are
// merged only after every goroutine finishes.
func (c *Coordinator) runParallel(ctx context.Context, instruction string, taskContext map[string]string, roles []string) []models.WorkerSummary {
	snapshot := copyContext(taskContext)
	summaries := make([]models.WorkerSummary, len(roles))

	var wg sync.WaitGroup
	for i, role := range roles {
		wg.Add(1)
		go func(i int, role string) {
			defer wg.Done()
			summaries[i] = c.runOne(ctx, role, instruction, snapshot)
		}(i, role)
	}
	wg.Wait()

	return summaries
}

// runOne dispatches a single role, converting missing workers, returned
// errors, and panics into failure summaries so one worker cannot take down
// the whole dispatch.
func (c *Coordinator) runOne(ctx context.Context, role, instruction string, execContext map[string]string) (summary models.WorkerSummary) {
	summary = models.WorkerSummary{Role: role}

	w := c.registry.Get(role)
	if w == nil {
		log.Printf("[coordinator] no worker registered for role %s", role)
		summary.Error = fmt.Sprintf("no worker available for role %q", role)
		return summary
	}
	summary.WorkerID = w.ID()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[coordinator] worker %s panicked: %v", w.ID(), r)
			summary.Success = false
			summary.Error = fmt.Sprintf("worker panic: %v", r)
		}
	}()

	result, err := w.Execute(ctx, instruction, execContext)
	if err != nil {
		summary.Error = err.Error()
		return summary
	}

	summary.Success = result.Success
	summary.Output = result.Output
	summary.Confidence = result.Confidence
	if !result.Success {
		summary.Error = result.FirstError()
	}
	return summary
}

// aggregate folds per-worker summaries into a CoordinationResult. The
// coordination succeeds if at least one worker succeeded; a lone successful
// output passes through verbatim while multiple outputs are joined under
// per-role headers in dispatch order.
func aggregate(summaries []models.WorkerSummary, mode models.ExecutionMode, routingReasoning string) *models.CoordinationResult {
	var succeeded, failed int
	var outputs []string
	for _, s := range summaries {
		if s.Success {
			succeeded++
			if s.Output != "" {
				outputs = append(outputs, fmt.Sprintf("=== %s OUTPUT ===\n%s", strings.ToUpper(s.Role), s.Output))
			}
		} else {
			failed++
		}
	}

	var output string
	success := succeeded > 0
	switch {
	case !success:
		output = "All workers failed to complete the task."
	case len(outputs) == 1:
		for _, s := range summaries {
			if s.Success && s.Output != "" {
				output = s.Output
				break
			}
		}
	default:
		output = strings.Join(outputs, "\n\n")
	}

	reasoning := fmt.Sprintf("Routing: %s. Executed %d workers in %s mode. %d succeeded, %d failed.",
		routingReasoning, len(summaries), mode, succeeded, failed)

	return &models.CoordinationResult{
		Success:           success,
		Output:            output,
		Workers:           summaries,
		Mode:              mode,
		TotalWorkers:      len(summaries),
		SuccessfulWorkers: succeeded,
		FailedWorkers:     failed,
		Reasoning:         reasoning,
	}
}

func copyContext(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
