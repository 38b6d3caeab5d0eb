package main

import (
	"context"
	"fmt"

	"github.com/trezcool/masomo-credentials/core/certificate"
	"github.com/trezcool/masomo-credentials/core/user"
)

// regenerate re-evaluates the course run's certificates, one learner at a time.
// A failing learner is logged and skipped.
func (cli *commandLine) regenerate(courseKey string, usernames []string, insecure bool) error {
	ctx := context.Background()

	var learners []user.User
	var err error
	if len(usernames) > 0 {
		learners, err = cli.learners(ctx, usernames)
	} else {
		var recs []certificate.Record
		if recs, err = cli.certs.ListByCourse(ctx, courseKey); err == nil {
			learners, err = cli.learnersOf(ctx, recs)
		}
	}
	if err != nil {
		return err
	}

	var failed int
	for _, learner := range learners {
		rec, err := cli.evaluator.Generate(ctx, learner, courseKey, certificate.GenerateOptions{Insecure: insecure})
		if err != nil {
			failed++
			cli.logger.Error(fmt.Sprintf("regenerating %s in %s: %v", learner.Username, courseKey, err), err, learner)
			continue
		}
		fmt.Printf("%s: %s\n", learner.Username, rec.Status)
	}
	fmt.Printf("%d certificate(s) regenerated, %d failed\n", len(learners)-failed, failed)
	return nil
}
