package recovery

import (
	"context"
	"errors"
	"log"

	"github.com/ShayCichocki/relay/internal/worker"
	"github.com/ShayCichocki/relay/pkg/models"
)

// ErrNoRecovery indicates every substitute worker was tried and none
// succeeded.
var ErrNoRecovery = errors.New("no worker could recover the step")

// FailureSource reports how often a role has already failed tasks of the
// same shape. *memory.Preferences satisfies it.
type FailureSource interface {
	FailureCount(task, role string) (int, error)
}

// maxRoleFailures is the recorded failure count at which a role stops being
// offered as a substitute for similar tasks.
const maxRoleFailures = 2

// Switcher retries a failed step with the remaining registered workers.
type Switcher struct {
	registry *worker.Registry
	failures FailureSource
}

// NewSwitcher creates a Switcher over the given registry.
func NewSwitcher(registry *worker.Registry) *Switcher {
	return &Switcher{registry: registry}
}

// SetFailureSource attaches the failure history consulted when picking
// substitutes. Nil disables avoidance.
func (s *Switcher) SetFailureSource(src FailureSource) {
	s.failures = src
}

// SwitchAndExecute tries each registered worker except the failed one, in
// registration order, until one succeeds. It returns the successful result
// and the role that produced it, so the caller can record a preference. A
// worker that errors or panics is treated as failed and the next worker is
// tried. Roles with a failure history on this task shape are skipped. When
// every worker is exhausted, ErrNoRecovery is returned.
func (s *Switcher) SwitchAndExecute(ctx context.Context, failedRole, instruction string, taskContext map[string]string) (*models.WorkerResult, string, error) {
	taskText := taskContext["task_description"]
	for _, w := range s.registry.All() {
		if w.Role() == failedRole {
			continue
		}
		if s.avoid(taskText, w.Role()) {
			continue
		}

		log.Printf("[recovery] switching from %s to %s", failedRole, w.Role())

		result := safeExecute(ctx, w, instruction, taskContext)
		if result != nil && result.Success {
			log.Printf("[recovery] worker %s recovered the step", w.Role())
			return result, w.Role(), nil
		}
	}

	return nil, "", ErrNoRecovery
}

// avoid reports whether the role has failed this task shape often enough to
// be dropped from the substitution order.
func (s *Switcher) avoid(taskText, role string) bool {
	if s.failures == nil || taskText == "" {
		return false
	}
	count, err := s.failures.FailureCount(taskText, role)
	if err != nil {
		log.Printf("[recovery] failure lookup for %s: %v", role, err)
		return false
	}
	if count >= maxRoleFailures {
		log.Printf("[recovery] skipping %s, %d prior failures on similar tasks", role, count)
		return true
	}
	return false
}

// safeExecute runs a worker, converting errors and panics into a nil result.
func safeExecute(ctx context.Context, w worker.Worker, instruction string, taskContext map[string]string) (result *models.WorkerResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[recovery] worker %s panicked: %v", w.ID(), r)
			result = nil
		}
	}()

	result, err := w.Execute(ctx, instruction, taskContext)
	if err != nil {
		log.Printf("[recovery] worker %s failed: %v", w.ID(), err)
		return nil
	}
	return result
}
