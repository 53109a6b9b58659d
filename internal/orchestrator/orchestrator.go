// Package orchestrator owns the end-to-end task lifecycle: strategic
// assessment, memory recall, search decision, decomposition, the per-step
// execute/evaluate/retry/recover loop, and the learning write-back.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/relay/internal/coordinator"
	"github.com/ShayCichocki/relay/internal/judgment"
	"github.com/ShayCichocki/relay/internal/memory"
	"github.com/ShayCichocki/relay/internal/recovery"
	"github.com/ShayCichocki/relay/internal/router"
	"github.com/ShayCichocki/relay/internal/state"
	"github.com/ShayCichocki/relay/internal/worker"
	"github.com/ShayCichocki/relay/pkg/models"
)

// shrinkLimit is the instruction length a retry_with_smaller_prompt attempt
// is cut down to.
const shrinkLimit = 500

// Options tunes the step loop and memory recall.
type Options struct {
	// MaxRetries is the hard ceiling on attempts per step.
	MaxRetries int
	// RetryBackoff is the fixed pause between attempts.
	RetryBackoff time.Duration
	// MaxSteps bounds the decomposition length; longer plans are truncated.
	MaxSteps int
	// MinConfidence is the recall floor for candidate memories.
	MinConfidence float64
	// RecallLimit caps how many memories a recall returns.
	RecallLimit int
	// RecallThreshold is the assessment confidence below which memory is
	// consulted even without an explicit request.
	RecallThreshold float64
}

// DefaultOptions returns the standard step-loop tuning.
func DefaultOptions() Options {
	return Options{
		MaxRetries:      3,
		RetryBackoff:    time.Second,
		MaxSteps:        10,
		MinConfidence:   memory.DefaultMinConfidence,
		RecallLimit:     memory.DefaultRecallLimit,
		RecallThreshold: 0.7,
	}
}

// Orchestrator drives tasks from pending to a terminal status.
type Orchestrator struct {
	judge    judgment.Service
	registry *worker.Registry
	router   *router.TaskRouter
	coord    *coordinator.Coordinator
	manager  *recovery.Manager
	switcher *recovery.Switcher
	memory   *memory.ConfidenceMemory
	prefs    *memory.Preferences
	db       *state.DB
	traces   *state.TraceExporter
	opts     Options
	events   chan Event
}

// New creates an Orchestrator. The memory, preference, state, and trace
// collaborators may be nil; the orchestrator degrades to a stateless run.
func New(judge judgment.Service, registry *worker.Registry, taskRouter *router.TaskRouter, opts Options) *Orchestrator {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = 10
	}
	if opts.RecallLimit <= 0 {
		opts.RecallLimit = memory.DefaultRecallLimit
	}
	return &Orchestrator{
		judge:    judge,
		registry: registry,
		router:   taskRouter,
		coord:    coordinator.New(registry, taskRouter),
		manager:  recovery.NewManager(),
		switcher: recovery.NewSwitcher(registry),
		opts:     opts,
		events:   make(chan Event, 64),
	}
}

// WithMemory attaches the confidence memory and preference store. The
// preference store's failure history also feeds substitute avoidance.
func (o *Orchestrator) WithMemory(mem *memory.ConfidenceMemory, prefs *memory.Preferences) *Orchestrator {
	o.memory = mem
	o.prefs = prefs
	if prefs != nil {
		o.switcher.SetFailureSource(prefs)
	}
	return o
}

// WithState attaches task/step persistence and trace export.
func (o *Orchestrator) WithState(db *state.DB, traces *state.TraceExporter) *Orchestrator {
	o.db = db
	o.traces = traces
	return o
}

// Execute runs one task from input text to a terminal status. Task-level
// failures are reported through the returned task's status and error text,
// not through the error return, which is reserved for infrastructure
// problems.
func (o *Orchestrator) Execute(ctx context.Context, input string) (*models.Task, error) {
	task := &models.Task{
		ID:        "task-" + uuid.New().String()[:8],
		Input:     input,
		Status:    models.TaskStatusPending,
		CreatedAt: time.Now(),
	}
	o.persistTask(task)

	trace := state.NewTrace(task.ID, input)

	task.Status = models.TaskStatusRunning
	o.persistTask(task)
	o.emitEvent(Event{Type: EventTaskStarted, TaskID: task.ID, Message: input})
	log.Printf("[orchestrator] task %s started", task.ID)

	// Phase 1: strategic assessment. A failed call degrades to conservative
	// defaults rather than aborting.
	assessment, err := o.judge.Classify(ctx, input)
	if err != nil || assessment == nil {
		log.Printf("[orchestrator] classification failed, using conservative defaults: %v", err)
		assessment = judgment.ConservativeAssessment()
	}

	// Phase 2: memory recall.
	var recalled []*models.MemoryRecord
	var memoryConfidence float64
	if o.memory != nil && (assessment.NeedsMemory || assessment.Confidence < o.opts.RecallThreshold) {
		result, err := o.memory.Recall(ctx, input, o.opts.MinConfidence, o.opts.RecallLimit)
		if err != nil {
			log.Printf("[orchestrator] memory recall failed: %v", err)
		} else {
			recalled = result.Records
			memoryConfidence = result.AvgConfidence
			for _, record := range recalled {
				trace.MemoriesUsed = append(trace.MemoriesUsed, record.ID)
			}
		}
	}

	// Phase 3: search decision. The flag flows into the step context but
	// does not branch the state machine.
	search, searchReason := shouldSearch(input, assessment, memoryConfidence, recalled)
	trace.SearchDecision = strconv.FormatBool(search)
	trace.SearchReason = searchReason
	log.Printf("[orchestrator] search=%t: %s", search, searchReason)

	// Phase 4: decomposition. Failure here is fatal; there is nothing to
	// execute without a plan.
	plan, err := o.judge.Decompose(ctx, input)
	if err != nil {
		o.failTask(task, trace, fmt.Sprintf("planning failed: %v", err))
		trace.Status = string(task.Status)
		trace.Error = task.Error
		o.exportTrace(trace)
		o.learn(ctx, task, assessment)
		return task, nil
	}
	if len(plan) > o.opts.MaxSteps {
		log.Printf("[orchestrator] plan truncated from %d to %d steps", len(plan), o.opts.MaxSteps)
		plan = plan[:o.opts.MaxSteps]
	}

	for _, planned := range plan {
		step := &models.Step{
			ID:          task.ID + "-s" + strconv.Itoa(planned.Number),
			TaskID:      task.ID,
			Number:      planned.Number,
			Instruction: planned.Instruction,
			Status:      models.StepStatusPending,
			CreatedAt:   time.Now(),
		}
		task.Steps = append(task.Steps, step)
		o.persistStep(step)
	}
	trace.TotalSteps = len(task.Steps)
	o.emitEvent(Event{Type: EventPlanCreated, TaskID: task.ID, Message: fmt.Sprintf("%d steps planned", len(task.Steps))})

	// Phase 5: per-step loop. Steps run strictly in order; context
	// accumulates monotonically.
	stepContext := map[string]string{
		"task_description": input,
		"should_search":    strconv.FormatBool(search),
	}
	for i, record := range recalled {
		stepContext[fmt.Sprintf("memory_%d_strategy", i+1)] = record.Strategy
	}

	for _, step := range task.Steps {
		o.runStep(ctx, task, step, stepContext, trace)
		if task.Status == models.TaskStatusFailed {
			break
		}
	}

	// Phase 6: terminal status and learning write-back.
	if task.Status != models.TaskStatusFailed {
		now := time.Now()
		task.Status = models.TaskStatusCompleted
		task.Error = ""
		task.CompletedAt = &now
		o.persistTask(task)
		o.emitEvent(Event{Type: EventTaskCompleted, TaskID: task.ID, Message: "task completed"})
		log.Printf("[orchestrator] task %s completed", task.ID)
	}

	for _, step := range task.Steps {
		switch step.Status {
		case models.StepStatusCompleted:
			trace.CompletedSteps++
		case models.StepStatusSkipped:
			trace.SkippedSteps++
		}
	}
	trace.Status = string(task.Status)
	trace.Error = task.Error
	o.exportTrace(trace)

	o.learn(ctx, task, assessment)
	return task, nil
}

// runStep drives one step to a terminal status, consuming retry budget and
// recovery decisions. It mutates the task directly when a decision fails the
// whole task.
func (o *Orchestrator) runStep(ctx context.Context, task *models.Task, step *models.Step, stepContext map[string]string, trace *state.Trace) {
	retryCount := 0
	shrink := false

	for {
		step.Status = models.StepStatusRunning
		step.RetryCount = retryCount
		o.persistStep(step)
		o.emitEvent(Event{Type: EventStepStarted, TaskID: task.ID, StepNumber: step.Number, Message: step.Instruction})

		outcome, workerID, meta := o.executeAttempt(ctx, step, stepContext, shrink)
		if workerID != "" {
			step.Worker = workerID
		}
		step.Result = outcome.Output
		step.Error = outcome.Error
		o.persistStep(step)

		evaluation := o.evaluate(ctx, step.Instruction, outcome, retryCount)

		trace.RecordAttempt(state.TraceAttempt{
			StepNumber:  step.Number,
			Attempt:     retryCount,
			Instruction: step.Instruction,
			Worker:      step.Worker,
			Success:     outcome.Success,
			Error:       outcome.Error,
			Verdict:     string(evaluation.Verdict),
			Reason:      evaluation.Reason,
		})

		switch evaluation.Verdict {
		case judgment.VerdictPass:
			o.completeStep(step, stepContext, outcome.Output)
			if filename := meta["filename"]; filename != "" {
				trace.RecordCreatedFile(filename)
			}
			o.emitEvent(Event{Type: EventStepCompleted, TaskID: task.ID, StepNumber: step.Number})
			return

		case judgment.VerdictRetry:
			retryCount++
			if retryCount < o.opts.MaxRetries {
				step.Status = models.StepStatusRetrying
				step.RetryCount = retryCount
				o.persistStep(step)
				o.emitEvent(Event{Type: EventStepRetrying, TaskID: task.ID, StepNumber: step.Number, Message: evaluation.Reason})
				log.Printf("[orchestrator] step %d retrying (%d/%d): %s", step.Number, retryCount, o.opts.MaxRetries, evaluation.Reason)
				o.pause(ctx)
				continue
			}
			// Retry budget exhausted: fall through to recovery.
		}

		// The attempt failed outright or the budget ran out. Analyze before
		// failing the whole task.
		decision := o.recoverStep(ctx, task, step, evaluation)
		o.emitEvent(Event{Type: EventRecovery, TaskID: task.ID, StepNumber: step.Number, Message: string(decision.Action)})
		log.Printf("[orchestrator] step %d recovery: %s (%s)", step.Number, decision.Action, decision.Reason)

		switch decision.Action {
		case models.ActionRetry, models.ActionRetrySmaller:
			if decision.Action == models.ActionRetrySmaller {
				shrink = true
			}
			retryCount++
			if retryCount < o.opts.MaxRetries {
				step.Status = models.StepStatusRetrying
				step.RetryCount = retryCount
				o.persistStep(step)
				o.pause(ctx)
				continue
			}
			o.recordRoleFailure(task.Input, o.router.Route(step.Instruction).Roles[0])
			o.failStep(task, step, trace, fmt.Sprintf("step %d exhausted retries", step.Number))
			return

		case models.ActionSwitchWorker:
			failedRole := o.router.Route(step.Instruction).Roles[0]
			o.recordRoleFailure(task.Input, failedRole)
			result, role, err := o.switcher.SwitchAndExecute(ctx, failedRole, step.Instruction, stepContext)
			if err == nil {
				// The substitute's success completes the step without
				// consuming retry budget.
				step.Worker = result.WorkerID
				o.completeStep(step, stepContext, result.Output)
				o.emitEvent(Event{Type: EventStepCompleted, TaskID: task.ID, StepNumber: step.Number, Message: "recovered by " + role})
				if o.prefs != nil {
					if err := o.prefs.RecordSuccess(task.Input, role); err != nil {
						log.Printf("[orchestrator] failed to record preference: %v", err)
					}
				}
				return
			}
			o.failStep(task, step, trace, fmt.Sprintf("step %d failed and no substitute worker recovered it", step.Number))
			return

		case models.ActionSkipStep:
			now := time.Now()
			step.Status = models.StepStatusSkipped
			step.CompletedAt = &now
			o.persistStep(step)
			o.emitEvent(Event{Type: EventStepSkipped, TaskID: task.ID, StepNumber: step.Number})
			return

		default: // abort_task and anything unrecognized
			o.recordRoleFailure(task.Input, o.router.Route(step.Instruction).Roles[0])
			o.failStep(task, step, trace, fmt.Sprintf("step %d failed: %s", step.Number, decision.Reason))
			return
		}
	}
}

// executeAttempt dispatches one step attempt to a single worker or, for
// multi-role instructions, the coordinator. Worker errors and panics surface
// as failed outcomes, never as thrown errors.
func (o *Orchestrator) executeAttempt(ctx context.Context, step *models.Step, stepContext map[string]string, shrink bool) (*judgment.WorkerOutcome, string, map[string]string) {
	instruction := step.Instruction
	execContext := stepContext
	if shrink {
		if len(instruction) > shrinkLimit {
			instruction = instruction[:shrinkLimit]
		}
		execContext = map[string]string{"task_description": stepContext["task_description"]}
	}

	decision := o.router.Route(instruction)
	if len(decision.Roles) > 1 {
		result := o.coord.Coordinate(ctx, instruction, execContext)
		outcome := &judgment.WorkerOutcome{
			Success: result.Success,
			Output:  result.Output,
		}
		if !result.Success {
			outcome.Error = result.Reasoning
		}
		return outcome, "", nil
	}

	role := decision.Roles[0]
	w := o.registry.Get(role)
	if w == nil {
		return &judgment.WorkerOutcome{Error: fmt.Sprintf("no worker available for role %q", role)}, "", nil
	}

	result, err := safeExecute(ctx, w, instruction, execContext)
	if err != nil {
		// Uncaught execution exception: automatic fail for this attempt.
		return &judgment.WorkerOutcome{Error: "execution error: " + err.Error()}, w.ID(), nil
	}

	outcome := &judgment.WorkerOutcome{
		Success:  result.Success,
		Output:   result.Output,
		Error:    result.FirstError(),
		Metadata: result.Metadata,
	}
	return outcome, result.WorkerID, result.Metadata
}

// safeExecute shields the step loop from worker panics.
func safeExecute(ctx context.Context, w worker.Worker, instruction string, execContext map[string]string) (result *models.WorkerResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("worker panic: %v", r)
		}
	}()
	return w.Execute(ctx, instruction, execContext)
}

// evaluate wraps the judgment call, degrading transport failures the same
// way the client degrades malformed output.
func (o *Orchestrator) evaluate(ctx context.Context, instruction string, outcome *judgment.WorkerOutcome, retryCount int) *judgment.Evaluation {
	evaluation, err := o.judge.Evaluate(ctx, instruction, outcome, retryCount)
	if err != nil || evaluation == nil {
		verdict := judgment.VerdictRetry
		if retryCount >= o.opts.MaxRetries-1 {
			verdict = judgment.VerdictFail
		}
		return &judgment.Evaluation{Verdict: verdict, Reason: fmt.Sprintf("evaluation unavailable: %v", err)}
	}
	return evaluation
}

// recoverStep critiques the failure and maps it to a recovery action.
// Critique failure yields a nil critique, which the manager turns into a
// plain retry.
func (o *Orchestrator) recoverStep(ctx context.Context, task *models.Task, step *models.Step, evaluation *judgment.Evaluation) *models.RecoveryDecision {
	critique, err := o.judge.Critique(ctx, o.buildTrace(task, step, evaluation))
	if err != nil {
		log.Printf("[orchestrator] critique failed: %v", err)
		critique = nil
	}
	return o.manager.Decide(critique)
}

// buildTrace snapshots the task's step history for a critique.
func (o *Orchestrator) buildTrace(task *models.Task, failing *models.Step, evaluation *judgment.Evaluation) *judgment.TaskTrace {
	trace := &judgment.TaskTrace{
		TaskID:    task.ID,
		Input:     task.Input,
		Succeeded: false,
	}
	if evaluation != nil {
		trace.Error = evaluation.Reason
	}
	for _, step := range task.Steps {
		ts := judgment.TraceStep{
			Number:      step.Number,
			Instruction: step.Instruction,
			Status:      string(step.Status),
			Worker:      step.Worker,
			Error:       step.Error,
			RetryCount:  step.RetryCount,
		}
		if failing != nil && step.Number == failing.Number {
			ts.Status = string(models.StepStatusFailed)
		}
		trace.Steps = append(trace.Steps, ts)
	}
	return trace
}

// completeStep marks the step done and merges its output into the shared
// context under step-scoped keys.
func (o *Orchestrator) completeStep(step *models.Step, stepContext map[string]string, output string) {
	now := time.Now()
	step.Status = models.StepStatusCompleted
	step.Result = output
	step.Error = ""
	step.CompletedAt = &now
	o.persistStep(step)

	stepContext[fmt.Sprintf("step_%d_output", step.Number)] = output
	stepContext[fmt.Sprintf("step_%d_success", step.Number)] = "true"
}

// recordRoleFailure charges a failed step against the role the router
// picked, feeding preference-based substitute avoidance on future tasks.
func (o *Orchestrator) recordRoleFailure(taskText, role string) {
	if o.prefs == nil || role == "" {
		return
	}
	if err := o.prefs.RecordFailure(taskText, role); err != nil {
		log.Printf("[orchestrator] failed to record role failure: %v", err)
	}
}

// failStep terminal-fails the step and the task.
func (o *Orchestrator) failStep(task *models.Task, step *models.Step, trace *state.Trace, reason string) {
	now := time.Now()
	step.Status = models.StepStatusFailed
	step.CompletedAt = &now
	o.persistStep(step)

	o.failTask(task, trace, reason)
}

// failTask transitions the task to failed with a non-empty error message.
func (o *Orchestrator) failTask(task *models.Task, trace *state.Trace, reason string) {
	now := time.Now()
	task.Status = models.TaskStatusFailed
	task.Error = reason
	task.CompletedAt = &now
	o.persistTask(task)
	o.emitEvent(Event{Type: EventTaskFailed, TaskID: task.ID, Message: reason})
	log.Printf("[orchestrator] task %s failed: %s", task.ID, reason)
}

// learn runs the post-task critique and memory write-back. Best effort: a
// failure here is logged and never alters the task's terminal status.
func (o *Orchestrator) learn(ctx context.Context, task *models.Task, assessment *judgment.Assessment) {
	if o.memory == nil {
		return
	}

	critique, err := o.judge.Critique(ctx, o.buildFinalTrace(task))
	if err != nil {
		log.Printf("[orchestrator] learning critique failed: %v", err)
		critique = nil
	}

	pattern := "general"
	if assessment != nil && assessment.ProblemType != "" {
		pattern = assessment.ProblemType
	}

	var quality float64
	strategy := "completed successfully"
	if critique != nil {
		quality = critique.PatternQuality
		if len(critique.Lessons) > 0 {
			strategy = critique.Lessons[0]
		}
		if err := o.memory.ApplyConfidenceUpdates(critique.ConfidenceUpdates); err != nil {
			log.Printf("[orchestrator] confidence update failed: %v", err)
		}
	}

	patternType := models.PatternSuccess
	if task.Status == models.TaskStatusFailed {
		patternType = models.PatternFailure
		strategy = task.Error
	}

	record := &models.MemoryRecord{
		PatternType:     patternType,
		TaskPattern:     pattern,
		TaskID:          task.ID,
		TaskDescription: task.Input,
		Strategy:        strategy,
		ToolsUsed:       collectWorkers(task),
		StepTrace:       encodeStepTrace(task),
		Confidence:      0.5,
	}
	if _, err := o.memory.Remember(record, quality); err != nil {
		log.Printf("[orchestrator] learning write-back failed: %v", err)
	}
}

// buildFinalTrace snapshots the finished task for the learning critique.
func (o *Orchestrator) buildFinalTrace(task *models.Task) *judgment.TaskTrace {
	trace := o.buildTrace(task, nil, nil)
	trace.Succeeded = task.Status == models.TaskStatusCompleted
	trace.Error = task.Error
	return trace
}

func collectWorkers(task *models.Task) []string {
	seen := make(map[string]bool)
	var workers []string
	for _, step := range task.Steps {
		if step.Worker != "" && !seen[step.Worker] {
			seen[step.Worker] = true
			workers = append(workers, step.Worker)
		}
	}
	return workers
}

func encodeStepTrace(task *models.Task) string {
	type stepEntry struct {
		Number      int    `json:"step"`
		Instruction string `json:"instruction"`
		Status      string `json:"status"`
		Worker      string `json:"worker,omitempty"`
	}
	entries := make([]stepEntry, 0, len(task.Steps))
	for _, step := range task.Steps {
		entries = append(entries, stepEntry{
			Number:      step.Number,
			Instruction: step.Instruction,
			Status:      string(step.Status),
			Worker:      step.Worker,
		})
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return ""
	}
	return string(data)
}

// pause waits the configured backoff between attempts, returning early on
// context cancellation.
func (o *Orchestrator) pause(ctx context.Context) {
	if o.opts.RetryBackoff <= 0 {
		return
	}
	select {
	case <-time.After(o.opts.RetryBackoff):
	case <-ctx.Done():
	}
}

// persistTask upserts the task row; persistence failures are logged, not
// propagated, so state storage cannot take down execution.
func (o *Orchestrator) persistTask(task *models.Task) {
	if o.db == nil {
		return
	}
	if err := o.db.UpsertTask(task); err != nil {
		log.Printf("[orchestrator] persist task %s: %v", task.ID, err)
	}
}

func (o *Orchestrator) persistStep(step *models.Step) {
	if o.db == nil {
		return
	}
	if err := o.db.UpsertStep(step); err != nil {
		log.Printf("[orchestrator] persist step %s: %v", step.ID, err)
	}
}

func (o *Orchestrator) exportTrace(trace *state.Trace) {
	if o.traces == nil {
		return
	}
	if path, err := o.traces.Export(trace); err != nil {
		log.Printf("[orchestrator] trace export failed: %v", err)
	} else {
		log.Printf("[orchestrator] trace exported to %s", path)
	}
}
