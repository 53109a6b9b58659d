package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ShayCichocki/relay/internal/judgment"
	"github.com/ShayCichocki/relay/internal/memory"
	"github.com/ShayCichocki/relay/internal/router"
	"github.com/ShayCichocki/relay/internal/state"
	"github.com/ShayCichocki/relay/internal/worker"
	"github.com/ShayCichocki/relay/pkg/models"
)

// scriptedJudge scripts every judgment call: Evaluate consumes verdicts in
// order and repeats the last one once they run out.
type scriptedJudge struct {
	assessment  *judgment.Assessment
	classifyErr error
	plan        []judgment.PlannedStep
	planErr     error
	verdicts    []judgment.Verdict
	evalCalls   int
	critique    *judgment.Critique
	critiqueErr error
}

func (j *scriptedJudge) Classify(ctx context.Context, taskText string) (*judgment.Assessment, error) {
	if j.classifyErr != nil {
		return nil, j.classifyErr
	}
	if j.assessment != nil {
		return j.assessment, nil
	}
	return &judgment.Assessment{ProblemType: "file_operation", Confidence: 0.9}, nil
}

func (j *scriptedJudge) Decompose(ctx context.Context, taskText string) ([]judgment.PlannedStep, error) {
	if j.planErr != nil {
		return nil, j.planErr
	}
	return j.plan, nil
}

func (j *scriptedJudge) Evaluate(ctx context.Context, instruction string, result *judgment.WorkerOutcome, retryCount int) (*judgment.Evaluation, error) {
	idx := j.evalCalls
	j.evalCalls++
	if idx >= len(j.verdicts) {
		idx = len(j.verdicts) - 1
	}
	if idx < 0 {
		return &judgment.Evaluation{Verdict: judgment.VerdictPass, Reason: "ok"}, nil
	}
	return &judgment.Evaluation{Verdict: j.verdicts[idx], Reason: "scripted"}, nil
}

func (j *scriptedJudge) Critique(ctx context.Context, trace *judgment.TaskTrace) (*judgment.Critique, error) {
	if j.critiqueErr != nil {
		return nil, j.critiqueErr
	}
	if j.critique != nil {
		return j.critique, nil
	}
	return &judgment.Critique{}, nil
}

func (j *scriptedJudge) SelectRelevant(ctx context.Context, taskText string, candidates []judgment.Candidate, limit int) ([]string, error) {
	return nil, nil
}

type stubWorker struct {
	role     string
	output   string
	failLeft int
	err      error
	metadata map[string]string
	calls    int
	seenCtx  []map[string]string
	seenInst []string
}

func (w *stubWorker) Role() string { return w.role }
func (w *stubWorker) ID() string   { return w.role + "-stub" }

func (w *stubWorker) Execute(ctx context.Context, instruction string, taskContext map[string]string) (*models.WorkerResult, error) {
	w.calls++
	snapshot := make(map[string]string, len(taskContext))
	for k, v := range taskContext {
		snapshot[k] = v
	}
	w.seenCtx = append(w.seenCtx, snapshot)
	w.seenInst = append(w.seenInst, instruction)

	if w.err != nil {
		return nil, w.err
	}
	if w.failLeft > 0 {
		w.failLeft--
		return &models.WorkerResult{
			Success:  false,
			Errors:   []string{"stub failure"},
			WorkerID: w.ID(),
		}, nil
	}
	return &models.WorkerResult{
		Success:    true,
		Output:     w.output,
		Metadata:   w.metadata,
		Confidence: 0.9,
		WorkerID:   w.ID(),
	}, nil
}

func newTestOrchestrator(judge judgment.Service, workers ...worker.Worker) *Orchestrator {
	registry := worker.NewRegistry()
	for _, w := range workers {
		registry.Register(w)
	}
	opts := DefaultOptions()
	opts.RetryBackoff = 0
	return New(judge, registry, router.New(nil), opts)
}

func newTestMemory(t *testing.T, selector judgment.Selector) (*memory.ConfidenceMemory, *memory.Preferences, *memory.Store) {
	t.Helper()
	store, err := memory.NewStore(filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return memory.NewConfidenceMemory(store, selector), memory.NewPreferences(store), store
}

func TestExecute_SingleStepSuccess(t *testing.T) {
	judge := &scriptedJudge{
		plan:     []judgment.PlannedStep{{Number: 1, Instruction: "create file demo.txt with text hello"}},
		verdicts: []judgment.Verdict{judgment.VerdictPass},
		critique: &judgment.Critique{
			Lessons:        []string{"write the file directly"},
			PatternQuality: 0.8,
		},
	}
	engineer := &stubWorker{role: worker.RoleEngineer, output: "created demo.txt", metadata: map[string]string{"filename": "demo.txt"}}

	mem, prefs, store := newTestMemory(t, judge)
	tracesDir := t.TempDir()
	o := newTestOrchestrator(judge, engineer).
		WithMemory(mem, prefs).
		WithState(nil, state.NewTraceExporter(tracesDir))

	task, err := o.Execute(context.Background(), "create file demo.txt with text hello")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if task.Status != models.TaskStatusCompleted {
		t.Fatalf("status = %s, want completed (error: %s)", task.Status, task.Error)
	}
	if task.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}
	if len(task.Steps) != 1 {
		t.Fatalf("steps = %d, want 1", len(task.Steps))
	}
	if task.Steps[0].Status != models.StepStatusCompleted {
		t.Errorf("step status = %s, want completed", task.Steps[0].Status)
	}
	if engineer.calls != 1 {
		t.Errorf("worker calls = %d, want 1", engineer.calls)
	}

	records, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("memory records = %d, want 1", len(records))
	}
	if records[0].PatternType != models.PatternSuccess {
		t.Errorf("pattern type = %s, want success", records[0].PatternType)
	}
	if records[0].Confidence != 0.8 {
		t.Errorf("confidence = %v, want 0.8 from pattern quality", records[0].Confidence)
	}
	if records[0].Strategy != "write the file directly" {
		t.Errorf("strategy = %q", records[0].Strategy)
	}

	if _, err := os.Stat(filepath.Join(tracesDir, "task_"+task.ID+".json")); err != nil {
		t.Errorf("trace file not exported: %v", err)
	}
}

func TestExecute_RetryThenPass(t *testing.T) {
	judge := &scriptedJudge{
		plan:     []judgment.PlannedStep{{Number: 1, Instruction: "create file out.txt"}},
		verdicts: []judgment.Verdict{judgment.VerdictRetry, judgment.VerdictPass},
	}
	engineer := &stubWorker{role: worker.RoleEngineer, output: "done", failLeft: 1}
	o := newTestOrchestrator(judge, engineer)

	task, err := o.Execute(context.Background(), "create file out.txt")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if task.Status != models.TaskStatusCompleted {
		t.Fatalf("status = %s, want completed", task.Status)
	}
	if engineer.calls != 2 {
		t.Errorf("worker calls = %d, want 2", engineer.calls)
	}
	if task.Steps[0].RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", task.Steps[0].RetryCount)
	}
}

func TestExecute_RetryCeiling(t *testing.T) {
	judge := &scriptedJudge{
		plan:     []judgment.PlannedStep{{Number: 1, Instruction: "create file out.txt"}},
		verdicts: []judgment.Verdict{judgment.VerdictRetry},
		critique: &judgment.Critique{}, // no signal: recovery defaults to retry
	}
	engineer := &stubWorker{role: worker.RoleEngineer, failLeft: 100}
	o := newTestOrchestrator(judge, engineer)

	task, err := o.Execute(context.Background(), "create file out.txt")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if task.Status != models.TaskStatusFailed {
		t.Fatalf("status = %s, want failed", task.Status)
	}
	if !strings.Contains(task.Error, "exhausted retries") {
		t.Errorf("error = %q, want exhausted retries", task.Error)
	}
	if engineer.calls != o.opts.MaxRetries {
		t.Errorf("worker calls = %d, want %d", engineer.calls, o.opts.MaxRetries)
	}
	if task.Steps[0].Status != models.StepStatusFailed {
		t.Errorf("step status = %s, want failed", task.Steps[0].Status)
	}
}

func TestExecute_SkipStep(t *testing.T) {
	judge := &scriptedJudge{
		plan: []judgment.PlannedStep{
			{Number: 1, Instruction: "create file missing-input.txt"},
			{Number: 2, Instruction: "create file second.txt"},
		},
		verdicts: []judgment.Verdict{judgment.VerdictFail, judgment.VerdictPass},
		critique: &judgment.Critique{SuggestedAction: "skip_step"},
	}
	engineer := &stubWorker{role: worker.RoleEngineer, output: "ok", failLeft: 1}
	o := newTestOrchestrator(judge, engineer)

	task, err := o.Execute(context.Background(), "create two files")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if task.Status != models.TaskStatusCompleted {
		t.Fatalf("status = %s, want completed (error: %s)", task.Status, task.Error)
	}
	if task.Steps[0].Status != models.StepStatusSkipped {
		t.Errorf("step 1 status = %s, want skipped", task.Steps[0].Status)
	}
	if task.Steps[1].Status != models.StepStatusCompleted {
		t.Errorf("step 2 status = %s, want completed", task.Steps[1].Status)
	}
}

func TestExecute_AbortTask(t *testing.T) {
	judge := &scriptedJudge{
		plan: []judgment.PlannedStep{
			{Number: 1, Instruction: "create file a.txt"},
			{Number: 2, Instruction: "create file b.txt"},
		},
		verdicts: []judgment.Verdict{judgment.VerdictFail},
		critique: &judgment.Critique{SuggestedAction: "abort_task"},
	}
	engineer := &stubWorker{role: worker.RoleEngineer, failLeft: 100}
	o := newTestOrchestrator(judge, engineer)

	task, err := o.Execute(context.Background(), "create files")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if task.Status != models.TaskStatusFailed {
		t.Fatalf("status = %s, want failed", task.Status)
	}
	if engineer.calls != 1 {
		t.Errorf("worker calls = %d, want 1 (abort halts immediately)", engineer.calls)
	}
	if task.Steps[1].Status != models.StepStatusPending {
		t.Errorf("step 2 status = %s, want pending after abort", task.Steps[1].Status)
	}
}

func TestExecute_SwitchWorkerRecovery(t *testing.T) {
	judge := &scriptedJudge{
		plan:     []judgment.PlannedStep{{Number: 1, Instruction: "create file notes.txt"}},
		verdicts: []judgment.Verdict{judgment.VerdictFail, judgment.VerdictPass},
		critique: &judgment.Critique{RootCauses: []string{"wrong worker selected for this step"}},
	}
	researcher := &stubWorker{role: worker.RoleResearcher, output: "recovered output"}
	engineer := &stubWorker{role: worker.RoleEngineer, failLeft: 100}

	mem, prefs, _ := newTestMemory(t, judge)
	o := newTestOrchestrator(judge, researcher, engineer).WithMemory(mem, prefs)

	task, err := o.Execute(context.Background(), "create file notes.txt")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if task.Status != models.TaskStatusCompleted {
		t.Fatalf("status = %s, want completed (error: %s)", task.Status, task.Error)
	}
	step := task.Steps[0]
	if step.Status != models.StepStatusCompleted {
		t.Fatalf("step status = %s, want completed", step.Status)
	}
	if step.Worker != researcher.ID() {
		t.Errorf("step worker = %q, want substitute %q", step.Worker, researcher.ID())
	}
	if step.Result != "recovered output" {
		t.Errorf("step result = %q", step.Result)
	}
	if step.RetryCount != 0 {
		t.Errorf("retry count = %d, want 0 (switching does not consume budget)", step.RetryCount)
	}

	role, err := prefs.PreferredRole("create file notes.txt")
	if err != nil {
		t.Fatalf("PreferredRole: %v", err)
	}
	if role != worker.RoleResearcher {
		t.Errorf("learned preference = %q, want researcher", role)
	}

	count, err := prefs.FailureCount("create file notes.txt", worker.RoleEngineer)
	if err != nil {
		t.Fatalf("FailureCount: %v", err)
	}
	if count != 1 {
		t.Errorf("failure count for engineer = %d, want 1", count)
	}
}

func TestExecute_SwitchAvoidsRolesWithFailureHistory(t *testing.T) {
	judge := &scriptedJudge{
		plan:     []judgment.PlannedStep{{Number: 1, Instruction: "create file notes.txt"}},
		verdicts: []judgment.Verdict{judgment.VerdictFail, judgment.VerdictPass},
		critique: &judgment.Critique{RootCauses: []string{"wrong worker selected for this step"}},
	}
	researcher := &stubWorker{role: worker.RoleResearcher, output: "should be avoided"}
	engineer := &stubWorker{role: worker.RoleEngineer, failLeft: 100}
	writer := &stubWorker{role: worker.RoleWriter, output: "written instead"}

	mem, prefs, _ := newTestMemory(t, judge)
	for i := 0; i < 2; i++ {
		if err := prefs.RecordFailure("create file notes.txt", worker.RoleResearcher); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}

	o := newTestOrchestrator(judge, researcher, engineer, writer).WithMemory(mem, prefs)

	task, err := o.Execute(context.Background(), "create file notes.txt")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if task.Status != models.TaskStatusCompleted {
		t.Fatalf("status = %s, want completed (error: %s)", task.Status, task.Error)
	}
	if researcher.calls != 0 {
		t.Errorf("researcher ran %d times despite its failure history", researcher.calls)
	}
	if task.Steps[0].Worker != writer.ID() {
		t.Errorf("step worker = %q, want %q", task.Steps[0].Worker, writer.ID())
	}
}

func TestExecute_SwitchWorkerExhausted(t *testing.T) {
	judge := &scriptedJudge{
		plan:     []judgment.PlannedStep{{Number: 1, Instruction: "create file x.txt"}},
		verdicts: []judgment.Verdict{judgment.VerdictFail},
		critique: &judgment.Critique{RootCauses: []string{"wrong worker selected"}},
	}
	engineer := &stubWorker{role: worker.RoleEngineer, failLeft: 100}
	o := newTestOrchestrator(judge, engineer)

	task, err := o.Execute(context.Background(), "create file x.txt")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if task.Status != models.TaskStatusFailed {
		t.Fatalf("status = %s, want failed when no substitute exists", task.Status)
	}
}

func TestExecute_ShrinkPromptRecovery(t *testing.T) {
	longInstruction := "create file long.txt " + strings.Repeat("with lots of surrounding detail ", 30)
	judge := &scriptedJudge{
		plan:     []judgment.PlannedStep{{Number: 1, Instruction: longInstruction}},
		verdicts: []judgment.Verdict{judgment.VerdictFail, judgment.VerdictPass},
		critique: &judgment.Critique{RootCauses: []string{"prompt too long for the model"}},
	}
	engineer := &stubWorker{role: worker.RoleEngineer, output: "ok", failLeft: 1}
	o := newTestOrchestrator(judge, engineer)

	task, err := o.Execute(context.Background(), "create a long file")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if task.Status != models.TaskStatusCompleted {
		t.Fatalf("status = %s, want completed (error: %s)", task.Status, task.Error)
	}
	if len(engineer.seenInst) != 2 {
		t.Fatalf("worker calls = %d, want 2", len(engineer.seenInst))
	}
	if len(engineer.seenInst[0]) <= shrinkLimit {
		t.Fatalf("test instruction too short to exercise shrinking")
	}
	if len(engineer.seenInst[1]) != shrinkLimit {
		t.Errorf("retry instruction length = %d, want %d", len(engineer.seenInst[1]), shrinkLimit)
	}
	if _, ok := engineer.seenCtx[1]["task_description"]; !ok {
		t.Error("shrunk attempt lost task_description from context")
	}
}

func TestExecute_LearningFailureDoesNotAlterStatus(t *testing.T) {
	judge := &scriptedJudge{
		plan:     []judgment.PlannedStep{{Number: 1, Instruction: "create file ok.txt"}},
		verdicts: []judgment.Verdict{judgment.VerdictPass},
	}
	engineer := &stubWorker{role: worker.RoleEngineer, output: "ok"}

	mem, prefs, store := newTestMemory(t, judge)
	store.Close() // learning write-back will fail against a closed store
	o := newTestOrchestrator(judge, engineer).WithMemory(mem, prefs)

	task, err := o.Execute(context.Background(), "create file ok.txt")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if task.Status != models.TaskStatusCompleted {
		t.Errorf("status = %s, want completed despite learning failure", task.Status)
	}
}

func TestExecute_PlanningFailure(t *testing.T) {
	judge := &scriptedJudge{planErr: judgment.ErrNoSteps}
	o := newTestOrchestrator(judge, &stubWorker{role: worker.RoleEngineer})

	task, err := o.Execute(context.Background(), "do something vague")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if task.Status != models.TaskStatusFailed {
		t.Fatalf("status = %s, want failed", task.Status)
	}
	if !strings.Contains(task.Error, "planning failed") {
		t.Errorf("error = %q, want planning failed", task.Error)
	}
	if len(task.Steps) != 0 {
		t.Errorf("steps = %d, want 0", len(task.Steps))
	}
}

func TestExecute_PlanTruncatedToMaxSteps(t *testing.T) {
	plan := []judgment.PlannedStep{
		{Number: 1, Instruction: "create file a"},
		{Number: 2, Instruction: "create file b"},
		{Number: 3, Instruction: "create file c"},
		{Number: 4, Instruction: "create file d"},
	}
	judge := &scriptedJudge{plan: plan, verdicts: []judgment.Verdict{judgment.VerdictPass}}
	engineer := &stubWorker{role: worker.RoleEngineer, output: "ok"}

	registry := worker.NewRegistry()
	registry.Register(engineer)
	opts := DefaultOptions()
	opts.RetryBackoff = 0
	opts.MaxSteps = 2
	o := New(judge, registry, router.New(nil), opts)

	task, err := o.Execute(context.Background(), "create many files")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(task.Steps) != 2 {
		t.Fatalf("steps = %d, want 2 after truncation", len(task.Steps))
	}
	for i, step := range task.Steps {
		if step.Number != i+1 {
			t.Errorf("step %d has number %d, want %d", i, step.Number, i+1)
		}
	}
}

func TestExecute_ContextFlowsBetweenSteps(t *testing.T) {
	judge := &scriptedJudge{
		plan: []judgment.PlannedStep{
			{Number: 1, Instruction: "create file data.txt"},
			{Number: 2, Instruction: "create file summary.txt"},
		},
		verdicts: []judgment.Verdict{judgment.VerdictPass},
	}
	engineer := &stubWorker{role: worker.RoleEngineer, output: "first output"}
	o := newTestOrchestrator(judge, engineer)

	task, err := o.Execute(context.Background(), "create files in order")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if task.Status != models.TaskStatusCompleted {
		t.Fatalf("status = %s, want completed", task.Status)
	}
	if len(engineer.seenCtx) != 2 {
		t.Fatalf("worker calls = %d, want 2", len(engineer.seenCtx))
	}
	second := engineer.seenCtx[1]
	if second["step_1_output"] != "first output" {
		t.Errorf("step 2 context step_1_output = %q, want first step output", second["step_1_output"])
	}
	if second["step_1_success"] != "true" {
		t.Errorf("step 2 context step_1_success = %q, want true", second["step_1_success"])
	}
	if second["task_description"] != "create files in order" {
		t.Errorf("task_description missing from context")
	}
}

func TestExecute_WorkerErrorIsFailedAttempt(t *testing.T) {
	judge := &scriptedJudge{
		plan:     []judgment.PlannedStep{{Number: 1, Instruction: "create file x"}},
		verdicts: []judgment.Verdict{judgment.VerdictFail},
		critique: &judgment.Critique{SuggestedAction: "abort_task"},
	}
	engineer := &stubWorker{role: worker.RoleEngineer, err: errors.New("connection reset")}
	o := newTestOrchestrator(judge, engineer)

	task, err := o.Execute(context.Background(), "create file x")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if task.Status != models.TaskStatusFailed {
		t.Fatalf("status = %s, want failed", task.Status)
	}
	if !strings.Contains(task.Steps[0].Error, "execution error") {
		t.Errorf("step error = %q, want execution error", task.Steps[0].Error)
	}
}

func TestExecute_PersistsTaskAndSteps(t *testing.T) {
	judge := &scriptedJudge{
		plan:     []judgment.PlannedStep{{Number: 1, Instruction: "create file demo.txt"}},
		verdicts: []judgment.Verdict{judgment.VerdictPass},
	}
	engineer := &stubWorker{role: worker.RoleEngineer, output: "ok"}

	db, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	o := newTestOrchestrator(judge, engineer).WithState(db, nil)
	task, err := o.Execute(context.Background(), "create file demo.txt")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	stored, err := db.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if stored == nil {
		t.Fatal("task not persisted")
	}
	if stored.Status != models.TaskStatusCompleted {
		t.Errorf("stored status = %s, want completed", stored.Status)
	}
	if len(stored.Steps) != 1 {
		t.Fatalf("stored steps = %d, want 1", len(stored.Steps))
	}
	if stored.Steps[0].Status != models.StepStatusCompleted {
		t.Errorf("stored step status = %s", stored.Steps[0].Status)
	}
}

func TestExecute_EventsEmitted(t *testing.T) {
	judge := &scriptedJudge{
		plan:     []judgment.PlannedStep{{Number: 1, Instruction: "create file e.txt"}},
		verdicts: []judgment.Verdict{judgment.VerdictPass},
	}
	engineer := &stubWorker{role: worker.RoleEngineer, output: "ok"}
	o := newTestOrchestrator(judge, engineer)

	if _, err := o.Execute(context.Background(), "create file e.txt"); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var types []EventType
	for {
		select {
		case ev := <-o.Events():
			types = append(types, ev.Type)
			continue
		default:
		}
		break
	}

	want := []EventType{EventTaskStarted, EventPlanCreated, EventStepStarted, EventStepCompleted, EventTaskCompleted}
	for _, w := range want {
		found := false
		for _, got := range types {
			if got == w {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("event %s not emitted (got %v)", w, types)
		}
	}

	for i := 1; i < len(types); i++ {
		if types[i] == EventTaskStarted {
			t.Errorf("task started event out of order")
		}
	}
	if len(types) > 0 && types[len(types)-1] != EventTaskCompleted {
		t.Errorf("last event = %s, want task completed", types[len(types)-1])
	}
}

func TestExecute_FailureWritesFailureMemory(t *testing.T) {
	judge := &scriptedJudge{
		plan:     []judgment.PlannedStep{{Number: 1, Instruction: "create file z.txt"}},
		verdicts: []judgment.Verdict{judgment.VerdictFail},
		critique: &judgment.Critique{SuggestedAction: "abort_task"},
	}
	engineer := &stubWorker{role: worker.RoleEngineer, failLeft: 100}

	mem, prefs, store := newTestMemory(t, judge)
	o := newTestOrchestrator(judge, engineer).WithMemory(mem, prefs)

	task, err := o.Execute(context.Background(), "create file z.txt")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if task.Status != models.TaskStatusFailed {
		t.Fatalf("status = %s, want failed", task.Status)
	}

	counts, err := store.CountByType()
	if err != nil {
		t.Fatalf("CountByType: %v", err)
	}
	if counts[models.PatternFailure] != 1 {
		t.Errorf("failure records = %d, want 1", counts[models.PatternFailure])
	}
	if counts[models.PatternSuccess] != 0 {
		t.Errorf("success records = %d, want 0", counts[models.PatternSuccess])
	}
}

func TestPause_RespectsContextCancellation(t *testing.T) {
	registry := worker.NewRegistry()
	opts := DefaultOptions()
	opts.RetryBackoff = 5 * time.Second
	o := New(&scriptedJudge{}, registry, router.New(nil), opts)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	o.pause(ctx)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("pause blocked %v after cancellation", elapsed)
	}
}
