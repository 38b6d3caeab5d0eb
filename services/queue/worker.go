package queuesvc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/trezcool/masomo-credentials/core"
	"github.com/trezcool/masomo-credentials/core/task"
)

var NowFunc = time.Now // mockable

type (
	WorkerOptions struct {
		Concurrency       int
		PollInterval      time.Duration
		VisibilityTimeout time.Duration
	}

	// Worker runs the envelopes of a RedisQueue through a task registry,
	// applying the retry policy to the results.
	Worker struct {
		queue    *RedisQueue
		registry *task.Registry
		alerter  task.Alerter
		logger   core.Logger
		opts     WorkerOptions

		cancel context.CancelFunc
		wg     sync.WaitGroup
	}
)

func NewWorker(queue *RedisQueue, registry *task.Registry, alerter task.Alerter, logger core.Logger, opts WorkerOptions) *Worker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.VisibilityTimeout <= 0 {
		opts.VisibilityTimeout = 5 * time.Minute
	}
	return &Worker{queue: queue, registry: registry, alerter: alerter, logger: logger, opts: opts}
}

// Start launches the worker goroutines; they run until Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	for i := 0; i < w.opts.Concurrency; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.run(ctx)
		}()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.requeue(ctx)
	}()
	w.logger.Info(fmt.Sprintf("worker started: %d goroutine(s), tasks %v", w.opts.Concurrency, w.registry.Names()))
}

// Stop waits for running tasks to return.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

func (w *Worker) run(ctx context.Context) {
	for {
		processed, err := w.Process(ctx)
		if err != nil && ctx.Err() == nil {
			w.logger.Error(fmt.Sprintf("processing task: %v", err), err)
		}
		if processed {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.opts.PollInterval):
		}
	}
}

func (w *Worker) requeue(ctx context.Context) {
	ticker := time.NewTicker(w.opts.VisibilityTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.queue.RequeueExpired(ctx, NowFunc())
			if err != nil {
				w.logger.Error(err.Error(), err)
			} else if n > 0 {
				w.logger.Warn(fmt.Sprintf("requeued %d expired task(s)", n))
			}
		}
	}
}

// Process runs the first due envelope, if any, and reports whether one was run.
func (w *Worker) Process(ctx context.Context) (bool, error) {
	now := NowFunc()
	r, err := w.queue.Reserve(ctx, now, now.Add(w.opts.VisibilityTimeout))
	if err != nil {
		if err == ErrEmpty {
			return false, nil
		}
		return false, err
	}

	env := r.Envelope
	res := w.registry.Dispatch(ctx, env)
	d := task.Resolve(env, res)

	switch d.Action {
	case task.ActionAck:
		w.logger.Debug(fmt.Sprintf("task %s (%s) succeeded", env.Name, env.ID))
		return true, w.queue.Ack(ctx, r)
	case task.ActionDrop:
		w.logger.Warn(fmt.Sprintf("task %s (%s) aborted: %s", env.Name, env.ID, d.Reason))
		return true, w.queue.Ack(ctx, r)
	case task.ActionReschedule:
		w.logger.Info(fmt.Sprintf("task %s (%s) retry %d in %s: %s", env.Name, env.ID, env.Attempt+1, d.Delay, d.Reason))
		return true, w.queue.Retry(ctx, r, env.Retry(d.Delay, d.Reason, NowFunc()))
	default:
		if err := w.queue.DeadLetter(ctx, r, d.Reason); err != nil {
			return true, err
		}
		w.alerter.DeadLettered(ctx, env, d)
		return true, nil
	}
}
