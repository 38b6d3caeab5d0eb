package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/masomo-credentials/core"
)

var nowFunc = time.Now // mockable

type backfiller interface {
	Backfill(ctx context.Context, since time.Time) (int, error)
}

// backfillJob re-enqueues program awards for the learners whose passing certificates
// changed within the window, catching the events a crashed process never turned into tasks.
type backfillJob struct {
	ctx    context.Context
	orch   backfiller
	window time.Duration
	logger core.Logger
}

var _ cron.Job = (*backfillJob)(nil)

func (j *backfillJob) Run() {
	since := nowFunc().Add(-j.window)
	n, err := j.orch.Backfill(j.ctx, since)
	if err != nil {
		j.logger.Error(fmt.Sprintf("backfill since %s: %v", since.Format(time.RFC3339), err), err)
		return
	}
	j.logger.Info(fmt.Sprintf("backfill since %s: enqueued %d learner(s)", since.Format(time.RFC3339), n))
}

// newScheduler returns a cron scheduler running the backfill on schedule.
// An empty schedule disables the backfill.
func newScheduler(ctx context.Context, schedule string, job *backfillJob) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if schedule == "" {
		return c, nil
	}
	job.ctx = ctx
	if _, err := c.AddJob(schedule, job); err != nil {
		return nil, errors.Wrapf(err, "scheduling backfill %q", schedule)
	}
	return c, nil
}
