// Package recovery turns failure critiques into remedial actions and retries
// failed steps with substitute workers.
package recovery

import (
	"fmt"
	"log"
	"strings"

	"github.com/ShayCichocki/relay/internal/judgment"
	"github.com/ShayCichocki/relay/pkg/models"
)

// patternQualityFloor is the reusability score below which further attempts
// are judged a waste of effort. A zero quality means the critique carried no
// signal and the rule is skipped.
const patternQualityFloor = 0.2

// Vocabulary scanned against a critique's free text, cheapest remedy last.
var (
	promptSizeVocab = []string{
		"prompt too long", "prompt size", "context length", "context window",
		"token limit", "too many tokens", "truncat", "input too large",
	}
	workerChoiceVocab = []string{
		"tool", "wrong agent", "wrong worker", "agent selection",
		"worker selection", "capability", "not equipped",
	}
	transientDefectVocab = []string{
		"syntax", "import", "typo", "parse error", "parsing error",
		"malformed", "off-by-one",
	}
)

// Manager converts a failure critique into a RecoveryDecision. It is
// stateless; decisions depend only on the critique passed in.
type Manager struct{}

// NewManager creates a recovery Manager.
func NewManager() *Manager {
	return &Manager{}
}

// Decide maps a critique to a recovery action. Explicit suggestions win; an
// unrecognized non-empty suggestion forces an abort rather than guessing.
// Without an explicit suggestion the critique's free text is scanned for
// evidence, and absent any evidence the cheapest remedy (plain retry) is
// chosen.
func (m *Manager) Decide(critique *judgment.Critique) *models.RecoveryDecision {
	if critique == nil {
		return &models.RecoveryDecision{
			Action: models.ActionRetry,
			Reason: "no critique available, defaulting to retry",
		}
	}

	if suggested := models.RecoveryAction(strings.TrimSpace(critique.SuggestedAction)); suggested != "" {
		if suggested.Valid() {
			log.Printf("[recovery] using suggested action: %s", suggested)
			return &models.RecoveryDecision{
				Action: suggested,
				Reason: "critique explicitly suggested this action",
			}
		}
		log.Printf("[recovery] invalid suggested action %q, aborting", suggested)
		return &models.RecoveryDecision{
			Action: models.ActionAbortTask,
			Reason: fmt.Sprintf("unrecognized recovery action %q", suggested),
		}
	}

	if q := critique.PatternQuality; q > 0 && q < patternQualityFloor {
		return &models.RecoveryDecision{
			Action: models.ActionAbortTask,
			Reason: fmt.Sprintf("failure pattern quality %.2f is below the %.2f floor", q, patternQualityFloor),
		}
	}

	text := strings.ToLower(critique.FreeText())

	if term := firstMatch(text, promptSizeVocab); term != "" {
		return &models.RecoveryDecision{
			Action: models.ActionRetrySmaller,
			Reason: fmt.Sprintf("critique mentions %q, shrinking the prompt", term),
		}
	}
	if term := firstMatch(text, workerChoiceVocab); term != "" {
		return &models.RecoveryDecision{
			Action: models.ActionSwitchWorker,
			Reason: fmt.Sprintf("critique mentions %q, trying a different worker", term),
		}
	}
	if term := firstMatch(text, transientDefectVocab); term != "" {
		return &models.RecoveryDecision{
			Action: models.ActionRetry,
			Reason: fmt.Sprintf("critique mentions %q, the next attempt may self-correct", term),
		}
	}

	return &models.RecoveryDecision{
		Action: models.ActionRetry,
		Reason: "no specific failure evidence, defaulting to retry",
	}
}

func firstMatch(text string, vocab []string) string {
	for _, term := range vocab {
		if strings.Contains(text, term) {
			return term
		}
	}
	return ""
}
