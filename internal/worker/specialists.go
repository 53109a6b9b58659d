package worker

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/relay/internal/judgment"
	"github.com/ShayCichocki/relay/internal/tools"
	"github.com/ShayCichocki/relay/pkg/models"
)

// Completer is the single-exchange LLM surface specialists prompt through.
// *judgment.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

const researcherSystemPrompt = `You are a research specialist. Given an instruction and any
prior step outputs, gather and synthesize the relevant information.
Respond with a concise research summary: key facts first, sources or
reasoning after. Do not write deliverable documents; that is another
specialist's job.`

const writerSystemPrompt = `You are a writing specialist. Given an instruction and any prior
step outputs (research findings, code, intermediate results), produce the
requested document or text. Respond with the finished text only, no
preamble and no commentary about the writing process.`

const engineerPromptHeader = `You are an engineering specialist working inside a sandboxed
workspace. You complete instructions by invoking exactly one tool per
request. Available tools:

`

const engineerPromptFooter = `
Respond with JSON only:
{"tool": "<tool name>", "input": "<tool input>"}

If the instruction needs no tool (pure reasoning or explanation), respond:
{"tool": "none", "input": "<your answer>"}`

// toolInputHints describes the input each stock tool expects. Tools without
// a hint are advertised with a generic one.
var toolInputHints = map[string]string{
	"file_write": `input is "<filename>\n<content>"`,
	"file_read":  "input is the filename",
	"file_list":  "input is ignored",
	"shell":      "input is a shell command",
	"web_search": "input is the search query",
}

// engineerSystemPrompt builds the tool list from the toolset actually
// registered, so the names the model sees are the names Run dispatches on.
func engineerSystemPrompt(available []tools.Tool) string {
	var b strings.Builder
	b.WriteString(engineerPromptHeader)
	if len(available) == 0 {
		b.WriteString("(none; answer every instruction directly)\n")
	}
	for _, t := range available {
		hint, ok := toolInputHints[t.Name()]
		if !ok {
			hint = "input is free text"
		}
		fmt.Fprintf(&b, "- %s: %s\n", t.Name(), hint)
	}
	b.WriteString(engineerPromptFooter)
	return b.String()
}

// textWorker is a specialist whose whole job is a single LLM completion.
// Researcher and writer are both textWorkers with different prompts.
type textWorker struct {
	role       string
	id         string
	system     string
	completer  Completer
	confidence float64
	// search, when set, is consulted before prompting whenever the task
	// context carries should_search=true. Only the researcher wires one.
	search tools.Tool
}

// NewResearcher creates the research specialist. The search tool may be nil,
// which leaves the researcher prompting from context alone.
func NewResearcher(c Completer, search tools.Tool) Worker {
	return &textWorker{
		role:       RoleResearcher,
		id:         "researcher-" + uuid.New().String()[:8],
		system:     researcherSystemPrompt,
		completer:  c,
		confidence: 0.85,
		search:     search,
	}
}

// NewWriter creates the writing specialist.
func NewWriter(c Completer) Worker {
	return &textWorker{
		role:       RoleWriter,
		id:         "writer-" + uuid.New().String()[:8],
		system:     writerSystemPrompt,
		completer:  c,
		confidence: 0.85,
	}
}

func (w *textWorker) Role() string { return w.role }
func (w *textWorker) ID() string   { return w.id }

func (w *textWorker) Execute(ctx context.Context, instruction string, taskContext map[string]string) (*models.WorkerResult, error) {
	start := time.Now()
	taskContext = w.augmentWithSearch(ctx, instruction, taskContext)
	prompt := buildPrompt(instruction, taskContext)

	output, err := w.completer.Complete(ctx, w.system, prompt)
	if err != nil {
		return &models.WorkerResult{
			Success:  false,
			Errors:   []string{err.Error()},
			WorkerID: w.id,
			Duration: time.Since(start),
			Metadata: map[string]string{"role": w.role},
		}, nil
	}

	output = strings.TrimSpace(output)
	if output == "" {
		return &models.WorkerResult{
			Success:  false,
			Errors:   []string{"empty response from model"},
			WorkerID: w.id,
			Duration: time.Since(start),
			Metadata: map[string]string{"role": w.role},
		}, nil
	}

	return &models.WorkerResult{
		Success:    true,
		Output:     output,
		Confidence: w.confidence,
		WorkerID:   w.id,
		Duration:   time.Since(start),
		Metadata:   map[string]string{"role": w.role},
	}, nil
}

// augmentWithSearch runs the search tool and folds its results into a copy of
// the task context. A failed search is logged and the prompt proceeds without
// results; the instruction still has to be answered.
func (w *textWorker) augmentWithSearch(ctx context.Context, instruction string, taskContext map[string]string) map[string]string {
	if w.search == nil || taskContext["should_search"] != "true" {
		return taskContext
	}

	res := w.search.Run(ctx, instruction)
	if !res.Success {
		log.Printf("[worker] %s search failed: %s", w.id, res.Error)
		return taskContext
	}

	augmented := make(map[string]string, len(taskContext)+1)
	for k, v := range taskContext {
		augmented[k] = v
	}
	augmented["web_search_results"] = res.Output
	return augmented
}

// Engineer completes instructions by asking the model for a single tool
// invocation and running it against the workspace.
type Engineer struct {
	id        string
	completer Completer
	system    string
	tools     map[string]tools.Tool
}

// NewEngineer creates the engineering specialist over the given tools.
func NewEngineer(c Completer, available []tools.Tool) *Engineer {
	byName := make(map[string]tools.Tool, len(available))
	for _, t := range available {
		byName[t.Name()] = t
	}
	return &Engineer{
		id:        "engineer-" + uuid.New().String()[:8],
		completer: c,
		system:    engineerSystemPrompt(available),
		tools:     byName,
	}
}

func (e *Engineer) Role() string { return RoleEngineer }
func (e *Engineer) ID() string   { return e.id }

// toolCall is the shape the engineer prompt asks the model for.
type toolCall struct {
	Tool  string `json:"tool"`
	Input string `json:"input"`
}

func (e *Engineer) Execute(ctx context.Context, instruction string, taskContext map[string]string) (*models.WorkerResult, error) {
	start := time.Now()
	prompt := buildPrompt(instruction, taskContext)

	raw, err := e.completer.Complete(ctx, e.system, prompt)
	if err != nil {
		return e.failure(start, err.Error(), nil), nil
	}

	var call toolCall
	if err := judgment.DecodeJSON(raw, &call); err != nil {
		return e.failure(start, fmt.Sprintf("malformed tool call: %v", err), nil), nil
	}

	if call.Tool == "" || call.Tool == "none" {
		return &models.WorkerResult{
			Success:    true,
			Output:     call.Input,
			Confidence: 0.7,
			WorkerID:   e.id,
			Duration:   time.Since(start),
			Metadata:   map[string]string{"role": RoleEngineer},
		}, nil
	}

	tool, ok := e.tools[call.Tool]
	if !ok {
		return e.failure(start, fmt.Sprintf("unknown tool %q", call.Tool), map[string]string{"tool_name": call.Tool}), nil
	}

	log.Printf("[worker] engineer %s invoking tool %s", e.id, call.Tool)
	res := tool.Run(ctx, call.Input)

	meta := map[string]string{"role": RoleEngineer}
	for k, v := range res.Metadata {
		meta[k] = v
	}

	if !res.Success {
		result := e.failure(start, res.Error, meta)
		result.Output = res.Output
		return result, nil
	}

	return &models.WorkerResult{
		Success:    true,
		Output:     res.Output,
		Confidence: 0.9,
		WorkerID:   e.id,
		Duration:   time.Since(start),
		Metadata:   meta,
	}, nil
}

func (e *Engineer) failure(start time.Time, msg string, meta map[string]string) *models.WorkerResult {
	if meta == nil {
		meta = map[string]string{"role": RoleEngineer}
	}
	return &models.WorkerResult{
		Success:  false,
		Errors:   []string{msg},
		WorkerID: e.id,
		Duration: time.Since(start),
		Metadata: meta,
	}
}

// buildPrompt folds prior step outputs into the user prompt so each
// specialist sees what the steps before it produced. Keys are sorted for a
// stable prompt.
func buildPrompt(instruction string, taskContext map[string]string) string {
	if len(taskContext) == 0 {
		return instruction
	}

	keys := make([]string, 0, len(taskContext))
	for k := range taskContext {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Context from earlier steps:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", k, taskContext[k])
	}
	b.WriteString("Instruction: ")
	b.WriteString(instruction)
	return b.String()
}

var (
	_ Worker = (*textWorker)(nil)
	_ Worker = (*Engineer)(nil)
)
