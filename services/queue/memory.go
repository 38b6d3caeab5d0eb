package queuesvc

import (
	"context"
	"sync"

	"github.com/trezcool/masomo-credentials/core/task"
)

// MemoryQueue keeps enqueued tasks in memory; for tests and dry runs.
type MemoryQueue struct {
	mu          sync.Mutex
	envelopes   []task.Envelope
	maxAttempts int
	err         error
}

var _ task.Queue = (*MemoryQueue)(nil)

func NewMemoryQueue(maxAttempts int) *MemoryQueue {
	return &MemoryQueue{maxAttempts: maxAttempts}
}

// Fail makes every following Enqueue return err.
func (q *MemoryQueue) Fail(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.err = err
}

func (q *MemoryQueue) Enqueue(ctx context.Context, d task.Descriptor) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	env, err := task.NewEnvelope(d, q.maxAttempts, NowFunc())
	if err != nil {
		return err
	}
	q.envelopes = append(q.envelopes, env)
	return nil
}

// Enqueued returns the envelopes enqueued so far, in order.
func (q *MemoryQueue) Enqueued() []task.Envelope {
	q.mu.Lock()
	defer q.mu.Unlock()
	envs := make([]task.Envelope, len(q.envelopes))
	copy(envs, q.envelopes)
	return envs
}

// Names returns the names of the enqueued tasks, in order.
func (q *MemoryQueue) Names() []string {
	envs := q.Enqueued()
	names := make([]string, 0, len(envs))
	for _, env := range envs {
		names = append(names, env.Name)
	}
	return names
}

// Drain removes and returns every enqueued envelope.
func (q *MemoryQueue) Drain() []task.Envelope {
	q.mu.Lock()
	defer q.mu.Unlock()
	envs := q.envelopes
	q.envelopes = nil
	return envs
}
