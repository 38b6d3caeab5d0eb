package main

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/masomo-credentials/core"
	"github.com/trezcool/masomo-credentials/core/award"
	"github.com/trezcool/masomo-credentials/core/certificate"
	"github.com/trezcool/masomo-credentials/core/credentials"
	"github.com/trezcool/masomo-credentials/core/user"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db        *sqlx.DB
	usrSvc    *user.Service
	users     user.Repository
	certs     certificate.Repository
	configs   credentials.ConfigRepository
	evaluator award.CertificateEvaluator
	notifier  notifier
	courses   courseSyncer
	logger    core.Logger
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, version, redo, reset...)")
	fmt.Println("  addserviceuser -username USERNAME -email EMAIL - create or reactivate the Credentials service account")
	fmt.Println("  configure -enabled -learner-issuance -internal-url URL [-public-url URL] [-cache-ttl DURATION] - save a new Credentials API config")
	fmt.Println("  notifycredentials -usernames A,B | -since DURATION [-dry-run] - resend learners' certificates to Credentials")
	fmt.Println("  regenerate -course COURSE_KEY [-usernames A,B] [-insecure] - re-evaluate certificates of a course run")
	fmt.Println("  allowlist -course COURSE_KEY -usernames A,B [-notes NOTES] - allow learners a certificate regardless of their grade")
	fmt.Println("  synccourses - refresh the course runs of the catalog's programs")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addServiceUserCmd := flag.NewFlagSet("addserviceuser", flag.ContinueOnError)
	addServiceUserUname := addServiceUserCmd.String("username", "", "The service account's username.")
	addServiceUserEmail := addServiceUserCmd.String("email", "", "The service account's email.")

	configureCmd := flag.NewFlagSet("configure", flag.ContinueOnError)
	configureEnabled := configureCmd.Bool("enabled", false, "Enable the Credentials integration.")
	configureIssuance := configureCmd.Bool("learner-issuance", false, "Enable issuing credentials to learners.")
	configureInternalURL := configureCmd.String("internal-url", "", "The Credentials service URL, as reached from the LMS.")
	configurePublicURL := configureCmd.String("public-url", "", "The Credentials service URL, as reached by learners.")
	configureCacheTTL := configureCmd.Duration("cache-ttl", 0, "How long workers may cache this config (0: no caching).")
	configureChangedBy := configureCmd.String("changed-by", "admin", "Who made the change.")

	notifyCmd := flag.NewFlagSet("notifycredentials", flag.ContinueOnError)
	notifyUsernames := notifyCmd.String("usernames", "", "Comma-separated usernames.")
	notifySince := notifyCmd.Duration("since", 0, "Notify learners whose certificates changed within this duration.")
	notifyDryRun := notifyCmd.Bool("dry-run", false, "Only print the learners that would be notified.")

	regenerateCmd := flag.NewFlagSet("regenerate", flag.ContinueOnError)
	regenerateCourse := regenerateCmd.String("course", "", "The course run key.")
	regenerateUsernames := regenerateCmd.String("usernames", "", "Comma-separated usernames (default: every learner with a certificate).")
	regenerateInsecure := regenerateCmd.Bool("insecure", false, "Forwarded to the grading service.")

	allowlistCmd := flag.NewFlagSet("allowlist", flag.ContinueOnError)
	allowlistCourse := allowlistCmd.String("course", "", "The course run key.")
	allowlistUsernames := allowlistCmd.String("usernames", "", "Comma-separated usernames.")
	allowlistNotes := allowlistCmd.String("notes", "", "Why the learners are allowed.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "addserviceuser":
		if err := addServiceUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addServiceUserUname == "" || *addServiceUserEmail == "" {
			addServiceUserCmd.Usage()
			return errHelp
		}
		return cli.addServiceUser(*addServiceUserUname, *addServiceUserEmail)

	case "configure":
		if err := configureCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.configure(credentials.APIConfig{
			Enabled:                *configureEnabled,
			LearnerIssuanceEnabled: *configureIssuance,
			InternalServiceURL:     *configureInternalURL,
			PublicServiceURL:       *configurePublicURL,
			CacheTTL:               *configureCacheTTL,
			ChangedBy:              *configureChangedBy,
		})

	case "notifycredentials":
		if err := notifyCmd.Parse(args[2:]); err != nil {
			return err
		}
		usernames := core.SplitList(*notifyUsernames)
		if (len(usernames) == 0) == (*notifySince <= 0) {
			notifyCmd.Usage()
			return errHelp
		}
		return cli.notifyCredentials(usernames, *notifySince, *notifyDryRun)

	case "regenerate":
		if err := regenerateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *regenerateCourse == "" {
			regenerateCmd.Usage()
			return errHelp
		}
		return cli.regenerate(*regenerateCourse, core.SplitList(*regenerateUsernames), *regenerateInsecure)

	case "allowlist":
		if err := allowlistCmd.Parse(args[2:]); err != nil {
			return err
		}
		usernames := core.SplitList(*allowlistUsernames)
		if *allowlistCourse == "" || len(usernames) == 0 {
			allowlistCmd.Usage()
			return errHelp
		}
		return cli.allowlist(*allowlistCourse, usernames, *allowlistNotes)

	case "synccourses":
		return cli.syncCourses()

	default:
		cli.printUsage()
		return errHelp
	}
}

var nowFunc = time.Now // mockable
