package judgment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"
)

// Client implements Service on top of the Anthropic API.
type Client struct {
	inner      anthropic.Client
	model      anthropic.Model
	maxRetries int
}

// ClientConfig contains configuration for creating a new Client.
type ClientConfig struct {
	// Model is the Claude model to use for judgment calls.
	Model anthropic.Model
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY.
	APIKey string
	// UseAWSBedrock indicates whether to use AWS Bedrock instead of direct API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g. "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
	// MaxRetries is the step retry ceiling degraded evaluations honor.
	// Zero or negative means 3.
	MaxRetries int
}

// NewClient creates a new Anthropic-backed judgment client.
func NewClient(cfg ClientConfig) (*Client, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()

		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeHaiku4_5_20251001
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &Client{
		inner:      anthropic.NewClient(opts...),
		model:      model,
		maxRetries: maxRetries,
	}, nil
}

// Complete sends a single system+user exchange and returns the text output.
// Specialist workers use this directly for their own prompting.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	return c.complete(ctx, system, user)
}

// complete sends a single system+user exchange and returns the text output.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("API call failed: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += variant.Text
		}
	}
	return text, nil
}

// Classify implements Classifier.
func (c *Client) Classify(ctx context.Context, taskText string) (*Assessment, error) {
	raw, err := c.complete(ctx, classifySystemPrompt, fmt.Sprintf("TASK:\n%s", taskText))
	if err != nil {
		return nil, err
	}

	var out Assessment
	if err := DecodeJSON(raw, &out); err != nil {
		return nil, fmt.Errorf("parse assessment: %w", err)
	}
	out.Confidence = clamp01(out.Confidence)
	if out.ProblemType == "" {
		out.ProblemType = "mixed"
	}
	return &out, nil
}

// Decompose implements Decomposer.
func (c *Client) Decompose(ctx context.Context, taskText string) ([]PlannedStep, error) {
	raw, err := c.complete(ctx, decomposeSystemPrompt, fmt.Sprintf("TASK:\n%s", taskText))
	if err != nil {
		return nil, err
	}

	var steps []PlannedStep
	if err := DecodeJSON(raw, &steps); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}

	// Renumber defensively: sequence numbers must be dense, 1-based.
	for i := range steps {
		steps[i].Number = i + 1
	}
	return steps, nil
}

// Evaluate implements Evaluator. Malformed model output is degraded to RETRY
// while retries remain, else FAIL, per the evaluation contract.
func (c *Client) Evaluate(ctx context.Context, instruction string, result *WorkerOutcome, retryCount int) (*Evaluation, error) {
	meta, _ := json.Marshal(result.Metadata)
	user := fmt.Sprintf(`STEP INSTRUCTION:
%s

WORKER EXECUTION:
- Success: %v
- Output: %s
- Error: %s
- Metadata: %s

RETRY COUNT: %d

Evaluate whether this step succeeded and return verdict JSON.`,
		instruction, result.Success, truncate(result.Output, 300), orNone(result.Error), meta, retryCount)

	raw, err := c.complete(ctx, evaluateSystemPrompt, user)
	if err != nil {
		return degradedEvaluation(fmt.Sprintf("evaluation call failed: %v", err), retryCount, c.maxRetries), nil
	}

	var out Evaluation
	if err := DecodeJSON(raw, &out); err != nil {
		log.Printf("[judgment] malformed evaluation output: %v", err)
		return degradedEvaluation(fmt.Sprintf("malformed evaluation output: %v", err), retryCount, c.maxRetries), nil
	}

	out.Verdict = Verdict(strings.ToUpper(string(out.Verdict)))
	if !out.Verdict.Valid() {
		return degradedEvaluation(fmt.Sprintf("unknown verdict %q", out.Verdict), retryCount, c.maxRetries), nil
	}
	if out.Reason == "" {
		out.Reason = "no reason provided"
	}
	return &out, nil
}

// degradedEvaluation is the conservative default for unparseable
// evaluations: retry while budget remains, fail on the last attempt.
func degradedEvaluation(reason string, retryCount, maxRetries int) *Evaluation {
	verdict := VerdictRetry
	if retryCount >= maxRetries-1 {
		verdict = VerdictFail
	}
	return &Evaluation{
		Verdict:     verdict,
		Reason:      reason,
		Suggestions: "ensure the evaluation response is valid JSON only",
	}
}

// Critique implements Critic.
func (c *Client) Critique(ctx context.Context, trace *TaskTrace) (*Critique, error) {
	payload, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal task trace: %w", err)
	}

	raw, err := c.complete(ctx, critiqueSystemPrompt, fmt.Sprintf("TASK TRACE:\n%s", payload))
	if err != nil {
		return nil, err
	}

	var out Critique
	if err := DecodeJSON(raw, &out); err != nil {
		return nil, fmt.Errorf("parse critique: %w", err)
	}
	out.PatternQuality = clamp01(out.PatternQuality)
	return &out, nil
}

// SelectRelevant implements Selector.
func (c *Client) SelectRelevant(ctx context.Context, taskText string, candidates []Candidate, limit int) ([]string, error) {
	payload, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal candidates: %w", err)
	}

	user := fmt.Sprintf(`Current task: %s

Past successful patterns (with confidence scores):
%s

Select the %d most relevant patterns for this task.`, taskText, payload, limit)

	raw, err := c.complete(ctx, selectSystemPrompt, user)
	if err != nil {
		return nil, err
	}

	var out struct {
		RelevantIDs []string `json:"relevant_ids"`
	}
	if err := DecodeJSON(raw, &out); err != nil {
		return nil, fmt.Errorf("parse selection: %w", err)
	}
	if len(out.RelevantIDs) > limit {
		out.RelevantIDs = out.RelevantIDs[:limit]
	}
	return out.RelevantIDs, nil
}

// truncate shortens s to at most n bytes for prompt inclusion.
func truncate(s string, n int) string {
	if s == "" {
		return "(empty)"
	}
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// Compile-time verification that Client implements every judgment contract.
var _ Service = (*Client)(nil)
