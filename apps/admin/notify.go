package main

import (
	"context"
	"fmt"
	"time"

	"github.com/trezcool/masomo-credentials/core/certificate"
	"github.com/trezcool/masomo-credentials/core/user"
)

type notifier interface {
	NotifyLearner(ctx context.Context, learner user.User) error
}

// notifyCredentials enqueues the sync of the learners' certificates and program credentials.
// Learners are named or picked by how recently their certificates changed.
func (cli *commandLine) notifyCredentials(usernames []string, since time.Duration, dryRun bool) error {
	ctx := context.Background()

	var learners []user.User
	var err error
	if len(usernames) > 0 {
		if learners, err = cli.learners(ctx, usernames); err != nil {
			return err
		}
	} else if learners, err = cli.recentLearners(ctx, nowFunc().Add(-since)); err != nil {
		return err
	}

	for _, learner := range learners {
		if dryRun {
			fmt.Printf("would notify %s\n", learner.Username)
			continue
		}
		if err := cli.notifier.NotifyLearner(ctx, learner); err != nil {
			return err
		}
	}
	fmt.Printf("%d learner(s) notified\n", len(learners))
	return nil
}

func (cli *commandLine) recentLearners(ctx context.Context, since time.Time) ([]user.User, error) {
	recs, err := cli.certs.ListModifiedSince(ctx, since)
	if err != nil {
		return nil, err
	}
	return cli.learnersOf(ctx, recs)
}

// learnersOf returns the distinct learners holding recs, in order; learners since deleted are skipped.
func (cli *commandLine) learnersOf(ctx context.Context, recs []certificate.Record) ([]user.User, error) {
	seen := make(map[int64]struct{}, len(recs))
	learners := make([]user.User, 0, len(recs))
	for _, rec := range recs {
		if _, ok := seen[rec.LearnerID]; ok {
			continue
		}
		seen[rec.LearnerID] = struct{}{}

		learner, err := cli.users.GetByID(ctx, rec.LearnerID)
		if err != nil {
			if err == user.ErrNotFound {
				continue
			}
			return nil, err
		}
		learners = append(learners, learner)
	}
	return learners, nil
}
