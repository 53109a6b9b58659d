// Package router maps free-text instructions to the specialist roles that
// should handle them and decides whether those roles run in sequence or in
// parallel.
package router

import (
	"fmt"
	"log"
	"strings"

	"github.com/ShayCichocki/relay/pkg/models"
)

// PreferenceSource answers whether a learned preference selects a specific
// role for a task. An empty role means no preference is recorded.
type PreferenceSource interface {
	PreferredRole(task string) (string, error)
}

// TaskRouter decides which specialist roles an instruction needs.
type TaskRouter struct {
	holder      tableHolder
	preferences PreferenceSource
}

// New creates a TaskRouter with the built-in table. The preference source
// may be nil, in which case routing is purely keyword-driven.
func New(prefs PreferenceSource) *TaskRouter {
	r := &TaskRouter{preferences: prefs}
	r.holder.set(DefaultTable())
	return r
}

// SetTable replaces the active routing table.
func (r *TaskRouter) SetTable(t *Table) {
	r.holder.set(t)
}

// Route decides which roles handle the instruction and in what mode.
// A learned preference short-circuits keyword matching entirely.
func (r *TaskRouter) Route(instruction string) *models.RoutingDecision {
	lower := strings.ToLower(instruction)

	if r.preferences != nil {
		role, err := r.preferences.PreferredRole(instruction)
		if err != nil {
			log.Printf("[router] preference lookup failed: %v", err)
		} else if role != "" {
			log.Printf("[router] using learned preference: %s", role)
			return &models.RoutingDecision{
				Roles:      []string{role},
				Mode:       models.ModeSequential,
				Confidence: 0.95,
				Reasoning:  fmt.Sprintf("learned preference selected %s", role),
			}
		}
	}

	table := r.holder.get()

	var roles []string
	var matched []string
	for _, role := range table.RoleOrder {
		for _, keyword := range table.Roles[role] {
			if strings.Contains(lower, keyword) {
				roles = append(roles, role)
				matched = append(matched, role+":"+keyword)
				break
			}
		}
	}

	defaulted := false
	if len(roles) == 0 {
		roles = append(roles, table.DefaultRole)
		matched = append(matched, "default:"+table.DefaultRole)
		defaulted = true
	}

	mode := executionMode(lower, roles, table.SequentialCues)
	confidence := routingConfidence(matched, defaulted)

	decision := &models.RoutingDecision{
		Roles:      roles,
		Mode:       mode,
		Confidence: confidence,
		Reasoning:  buildReasoning(roles, matched),
	}

	log.Printf("[router] routed to %v mode=%s confidence=%.2f", roles, mode, confidence)
	return decision
}

// executionMode picks sequential or parallel execution for the chosen roles.
// Temporal cue words always force sequential; a researcher feeding a writer
// is sequential because the writer consumes research output.
func executionMode(lower string, roles []string, cues []string) models.ExecutionMode {
	for _, cue := range cues {
		if strings.Contains(lower, cue) {
			return models.ModeSequential
		}
	}

	if containsRole(roles, "researcher") && containsRole(roles, "writer") {
		return models.ModeSequential
	}

	if len(roles) > 1 {
		return models.ModeParallel
	}
	return models.ModeSequential
}

func routingConfidence(matched []string, defaulted bool) float64 {
	if defaulted {
		return 0.5
	}
	if len(matched) >= 2 {
		return 0.9
	}
	return 0.75
}

func buildReasoning(roles, matched []string) string {
	if len(roles) == 1 {
		return fmt.Sprintf("task requires %s based on keywords: %s", roles[0], strings.Join(matched, ", "))
	}
	return fmt.Sprintf("task requires multiple roles (%s) based on keywords: %s",
		strings.Join(roles, ", "), strings.Join(matched, ", "))
}

func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
