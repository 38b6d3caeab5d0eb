package main

import (
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/masomo-credentials/apps/di"
	"github.com/trezcool/masomo-credentials/core"
	"github.com/trezcool/masomo-credentials/core/award"
	"github.com/trezcool/masomo-credentials/core/certificate"
	"github.com/trezcool/masomo-credentials/core/program"
	"github.com/trezcool/masomo-credentials/core/user"
	"github.com/trezcool/masomo-credentials/storage/cache"
)

func main() {
	c := di.New("admin")

	var code int
	errAndDie(c.Invoke(func(
		logger core.Logger,
		db *sqlx.DB,
		usrSvc *user.Service,
		users user.Repository,
		certs certificate.Repository,
		configs *cache.ConfigCache,
		evaluator award.CertificateEvaluator,
		orch *award.Orchestrator,
		meter *program.Meter,
	) {
		defer db.Close()

		// start CLI
		cli := commandLine{
			db:        db,
			usrSvc:    usrSvc,
			users:     users,
			certs:     certs,
			configs:   configs,
			evaluator: evaluator,
			notifier:  orch,
			courses:   meter,
			logger:    logger,
		}
		if err := cli.run(os.Args); err != nil {
			if err != errHelp {
				fmt.Printf("\nerror: %s\n", err)
			}
			code = 1
		}
	}))
	os.Exit(code)
}

func errAndDie(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
