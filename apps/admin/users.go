package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-credentials/core/certificate"
	"github.com/trezcool/masomo-credentials/core/user"
)

// addServiceUser updates or creates the service account the Credentials service knows us by.
func (cli *commandLine) addServiceUser(uname, email string) error {
	usr, err := cli.usrSvc.AddServiceUser(context.Background(), user.NewServiceUser{Username: uname, Email: email})
	if err != nil {
		return err
	}
	fmt.Printf("service user %q (id %d) is active\n", usr.Username, usr.ID)
	return nil
}

// allowlist lets the learners get a certificate in the course run whatever their grade.
func (cli *commandLine) allowlist(courseKey string, usernames []string, notes string) error {
	ctx := context.Background()
	learners, err := cli.learners(ctx, usernames)
	if err != nil {
		return err
	}
	for _, learner := range learners {
		entry := certificate.AllowlistEntry{LearnerID: learner.ID, CourseKey: courseKey, Notes: notes, CreatedAt: nowFunc().UTC()}
		if err := cli.certs.AddToAllowlist(ctx, entry); err != nil {
			return err
		}
		fmt.Printf("%s allowlisted in %s\n", learner.Username, courseKey)
	}
	return nil
}

// learners returns the users named by usernames, failing on the first unknown one.
func (cli *commandLine) learners(ctx context.Context, usernames []string) ([]user.User, error) {
	users, err := cli.users.ListByUsernames(ctx, usernames...)
	if err != nil {
		return nil, err
	}
	found := make(map[string]struct{}, len(users))
	for _, usr := range users {
		found[usr.Username] = struct{}{}
	}
	for _, uname := range usernames {
		if _, ok := found[uname]; !ok {
			return nil, errors.Wrap(user.ErrNotFound, uname)
		}
	}
	return users, nil
}
