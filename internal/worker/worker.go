// Package worker defines the pluggable execution units that carry out step
// instructions, and the registry the coordinator and switcher draw them from.
package worker

import (
	"context"
	"sync"

	"github.com/ShayCichocki/relay/pkg/models"
)

// Well-known specialist roles.
const (
	RoleResearcher = "researcher"
	RoleEngineer   = "engineer"
	RoleWriter     = "writer"
)

// Worker executes one step instruction against the shared task context.
// Implementations must not return an error for expected failures; those are
// reported with Success=false on the result. A returned error (or panic,
// which the coordinator isolates) is treated by the orchestrator as a fail
// verdict for the attempt.
type Worker interface {
	// Role is the specialist role this worker fills.
	Role() string
	// ID identifies this worker instance.
	ID() string
	// Execute runs the instruction. The context map is read-only for the
	// worker; outputs flow back through the result.
	Execute(ctx context.Context, instruction string, taskContext map[string]string) (*models.WorkerResult, error)
}

// Registry holds workers in registration order. Registration order matters:
// the switcher tries remaining workers in exactly this order.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	workers map[string]Worker
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{workers: make(map[string]Worker)}
}

// Register adds a worker under its role. Re-registering a role replaces the
// worker but keeps its original position.
func (r *Registry) Register(w Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()

	role := w.Role()
	if _, exists := r.workers[role]; !exists {
		r.order = append(r.order, role)
	}
	r.workers[role] = w
}

// Get returns the worker registered for the role, or nil.
func (r *Registry) Get(role string) Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.workers[role]
}

// Roles returns the registered roles in registration order.
func (r *Registry) Roles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All returns the registered workers in registration order.
func (r *Registry) All() []Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Worker, 0, len(r.order))
	for _, role := range r.order {
		out = append(out, r.workers[role])
	}
	return out
}

// Len returns the number of registered workers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
