package engine

import (
	"context"
	"sync"

	"github.com/jobflowhq/jobflow/internal/domain"
)

// Handler executes one task type's configuration. The config blob is
// opaque to the engine; only the handler parses and validates it.
type Handler interface {
	// Validate checks the config before any execution attempt. A
	// validation failure fails the task immediately and is never retried.
	Validate(config string) error

	// Execute performs the task's work. Implementations must honor ctx
	// cancellation and may read/write artifacts produced by earlier tasks.
	Execute(ctx context.Context, config string, artifacts *Artifacts) error
}

// Registry maps a task-type tag to the handler that executes it.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	fallback Handler
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register binds a task type to a handler, replacing any previous binding.
func (r *Registry) Register(taskType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[taskType] = h
}

// SetFallback installs the handler returned for unrecognized task types.
// Without a fallback, Resolve surfaces ErrUnknownTaskType.
func (r *Registry) SetFallback(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = h
}

// Resolve returns the handler for the given task type, falling back to the
// registered fallback handler when one is configured.
func (r *Registry) Resolve(taskType string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, ok := r.handlers[taskType]; ok {
		return h, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, domain.ErrUnknownTaskType
}

// Types returns all registered task types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	return types
}
