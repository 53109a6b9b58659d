package memory

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/relay/internal/judgment"
	"github.com/ShayCichocki/relay/pkg/models"
)

// Recall tuning. Candidates are over-fetched so the selector has slack, and
// confidence adjustments only touch a handful of recent rows per pattern.
const (
	DefaultMinConfidence = 0.3
	DefaultRecallLimit   = 3
	candidateFactor      = 3
	selectorFactor       = 2
	adjustMaxRows        = 5
)

// ConfidenceMemory stores task patterns weighted by a confidence score and
// recalls them ranked by confidence, recency, and usage.
type ConfidenceMemory struct {
	store    *Store
	selector judgment.Selector
}

// NewConfidenceMemory creates a ConfidenceMemory. The selector refines
// recall candidates semantically; it may be nil, in which case recall is
// purely score-ordered.
func NewConfidenceMemory(store *Store, selector judgment.Selector) *ConfidenceMemory {
	return &ConfidenceMemory{store: store, selector: selector}
}

// Remember writes a new memory record. A positive patternQuality from the
// learning critique overrides the record's own confidence. Failure records
// store the complement of confidence, so an approach that failed with high
// confidence ranks low as a success proxy.
func (m *ConfidenceMemory) Remember(record *models.MemoryRecord, patternQuality float64) (string, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	confidence := record.Confidence
	if patternQuality > 0 {
		confidence = patternQuality
	}
	if record.PatternType == models.PatternFailure {
		confidence = 1 - confidence
	}
	record.Confidence = confidence

	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	if err := m.store.Insert(record); err != nil {
		return "", fmt.Errorf("store memory: %w", err)
	}

	log.Printf("[memory] stored %s pattern %q confidence=%.2f", record.PatternType, record.TaskPattern, record.Confidence)
	return record.ID, nil
}

// RecallResult is the outcome of a recall pass.
type RecallResult struct {
	// Records are the selected memories, most relevant first.
	Records []*models.MemoryRecord
	// AvgConfidence is the mean confidence of the returned records, 0 when
	// nothing was recalled.
	AvgConfidence float64
}

// Recall returns up to limit past success memories relevant to the task.
// Candidates are ranked by composite score, the selector picks the most
// semantically relevant among the top ones, and every returned record's
// usage counter is incremented. Selector failure degrades to pure
// score-order, never to an error.
func (m *ConfidenceMemory) Recall(ctx context.Context, taskDescription string, minConfidence float64, limit int) (*RecallResult, error) {
	if limit <= 0 {
		limit = DefaultRecallLimit
	}

	candidates, err := m.store.Candidates(minConfidence, limit*candidateFactor)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	if len(candidates) == 0 {
		return &RecallResult{}, nil
	}

	now := time.Now()
	sort.SliceStable(candidates, func(i, j int) bool {
		return CompositeScore(candidates[i], now) > CompositeScore(candidates[j], now)
	})

	selected := m.selectRelevant(ctx, taskDescription, candidates, limit)

	var sum float64
	for _, record := range selected {
		sum += record.Confidence
		if err := m.store.MarkUsed(record.ID); err != nil {
			log.Printf("[memory] failed to mark %s used: %v", record.ID, err)
		}
	}

	result := &RecallResult{Records: selected}
	if len(selected) > 0 {
		result.AvgConfidence = sum / float64(len(selected))
	}

	log.Printf("[memory] recalled %d memories avg_confidence=%.2f", len(selected), result.AvgConfidence)
	return result, nil
}

// selectRelevant asks the selector to pick among the top candidates and
// falls back to composite-score order when the selector is absent or fails.
func (m *ConfidenceMemory) selectRelevant(ctx context.Context, taskDescription string, ranked []*models.MemoryRecord, limit int) []*models.MemoryRecord {
	fallback := ranked
	if len(fallback) > limit {
		fallback = fallback[:limit]
	}

	if m.selector == nil {
		return fallback
	}

	top := ranked
	if len(top) > limit*selectorFactor {
		top = top[:limit*selectorFactor]
	}

	candidates := make([]judgment.Candidate, len(top))
	byID := make(map[string]*models.MemoryRecord, len(top))
	for i, record := range top {
		candidates[i] = judgment.Candidate{
			ID:         record.ID,
			Pattern:    record.TaskPattern,
			Task:       record.TaskDescription,
			Strategy:   record.Strategy,
			Confidence: record.Confidence,
			TimesUsed:  record.TimesUsed,
		}
		byID[record.ID] = record
	}

	ids, err := m.selector.SelectRelevant(ctx, taskDescription, candidates, limit)
	if err != nil {
		log.Printf("[memory] selector failed, using score order: %v", err)
		return fallback
	}

	var selected []*models.MemoryRecord
	for _, id := range ids {
		if record, ok := byID[id]; ok {
			selected = append(selected, record)
		}
		if len(selected) == limit {
			break
		}
	}
	if len(selected) == 0 {
		return fallback
	}
	return selected
}

// ApplyConfidenceUpdates shifts the confidence of recent memories matching
// each pattern, clamped to [0,1].
func (m *ConfidenceMemory) ApplyConfidenceUpdates(updates map[string]float64) error {
	for pattern, delta := range updates {
		touched, err := m.store.AdjustConfidence(pattern, delta, adjustMaxRows)
		if err != nil {
			return fmt.Errorf("adjust pattern %q: %w", pattern, err)
		}
		log.Printf("[memory] adjusted %d memories for pattern %q by %+.2f", touched, pattern, delta)
	}
	return nil
}

// CompositeScore ranks a memory for recall: confidence weighted by recency
// decay and amplified by how often the memory has paid off before.
func CompositeScore(record *models.MemoryRecord, now time.Time) float64 {
	return record.Confidence * record.RecencyScore(now) * (1 + math.Sqrt(float64(record.TimesUsed))/10)
}
