package orchestrator

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/relay/internal/judgment"
	"github.com/ShayCichocki/relay/pkg/models"
)

// Search gate thresholds.
const (
	searchConfidenceThreshold = 0.6
	strongMemoryThreshold     = 0.8
	memorySuccessThreshold    = 0.8
)

// Keywords that almost always indicate need for external information.
var searchIndicators = []string{
	"latest", "recent", "current", "today", "news",
	"what is", "who is", "where is", "when did",
	"search for", "find", "look up", "research",
	"discover", "investigate", "explore",
}

// Keywords that indicate internal/file operations.
var noSearchIndicators = []string{
	"create file", "read file", "write file", "delete file",
	"list files", "calculate", "compute", "parse",
	"format", "convert", "sort", "filter",
}

// Problem types that never need external information.
var localProblemTypes = map[string]bool{
	"calculation":      true,
	"file_operation":   true,
	"system_operation": true,
}

// shouldSearch decides once per task whether external information gathering
// is warranted. Rules run in priority order, first match wins; the default
// is no search to avoid unnecessary external calls.
func shouldSearch(taskText string, assessment *judgment.Assessment, memoryConfidence float64, memories []*models.MemoryRecord) (bool, string) {
	lower := strings.ToLower(taskText)

	if assessment.NeedsSearch {
		return true, "assessment determined search is needed"
	}

	for _, indicator := range searchIndicators {
		if strings.Contains(lower, indicator) {
			return true, fmt.Sprintf("task contains search indicator %q", indicator)
		}
	}

	for _, indicator := range noSearchIndicators {
		if strings.Contains(lower, indicator) {
			return false, fmt.Sprintf("task is an internal operation: %q", indicator)
		}
	}

	if assessment.Confidence < searchConfidenceThreshold {
		return true, fmt.Sprintf("low assessment confidence (%.2f)", assessment.Confidence)
	}

	if memoryConfidence > strongMemoryThreshold {
		return false, fmt.Sprintf("strong memory match (%.2f)", memoryConfidence)
	}

	if len(memories) > 0 {
		var sum float64
		for _, m := range memories {
			sum += m.Confidence
		}
		if avg := sum / float64(len(memories)); avg > memorySuccessThreshold {
			return false, fmt.Sprintf("past successes available (%.2f)", avg)
		}
	}

	if localProblemTypes[assessment.ProblemType] {
		return false, fmt.Sprintf("problem type %q does not need search", assessment.ProblemType)
	}

	return false, "no strong indicators for search"
}
