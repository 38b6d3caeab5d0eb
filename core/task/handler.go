package task

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type (
	Handler interface {
		Handle(ctx context.Context, env Envelope) Result
	}

	HandlerFunc func(ctx context.Context, env Envelope) Result

	// Queue accepts tasks for asynchronous execution.
	Queue interface {
		Enqueue(ctx context.Context, d Descriptor) error
	}

	// Alerter is told about envelopes that exhausted their retries.
	Alerter interface {
		DeadLettered(ctx context.Context, env Envelope, d Decision)
	}

	// Registry maps task names to their handlers.
	Registry struct {
		mu       sync.RWMutex
		handlers map[string]Handler
	}
)

func (f HandlerFunc) Handle(ctx context.Context, env Envelope) Result {
	return f(ctx, env)
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

func (r *Registry) Handler(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the envelope's handler. Unknown tasks abort; panics are retried with backoff.
func (r *Registry) Dispatch(ctx context.Context, env Envelope) (res Result) {
	h, ok := r.Handler(env.Name)
	if !ok {
		return Abort(fmt.Sprintf("unknown task %q", env.Name))
	}
	defer func() {
		if rec := recover(); rec != nil {
			res = RetryAfter(Backoff(env.Attempt), fmt.Sprintf("panic: %v", rec))
		}
	}()
	return h.Handle(ctx, env)
}
