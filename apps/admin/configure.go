package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/trezcool/masomo-credentials/core/credentials"
)

var errMissingInternalURL = errors.New("enabling the Credentials API requires -internal-url")

// configure appends a new Credentials API config; it becomes the current one.
func (cli *commandLine) configure(conf credentials.APIConfig) error {
	if conf.Enabled && conf.InternalServiceURL == "" {
		return errMissingInternalURL
	}
	if conf.CacheTTL < 0 {
		return errors.New("-cache-ttl must not be negative")
	}
	conf.ChangedAt = nowFunc().UTC()

	saved, err := cli.configs.Save(context.Background(), conf)
	if err != nil {
		return err
	}
	fmt.Printf("credentials config #%d saved (enabled: %t, learner issuance: %t)\n",
		saved.ID, saved.Enabled, saved.IsLearnerIssuanceEnabled())
	return nil
}
