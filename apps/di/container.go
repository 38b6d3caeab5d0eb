// Package di wires the application's dependencies into a dig container shared by the apps.
package di

import (
	"fmt"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/masomo-credentials/apps/api/echo"
	"github.com/trezcool/masomo-credentials/core"
	"github.com/trezcool/masomo-credentials/core/award"
	"github.com/trezcool/masomo-credentials/core/certificate"
	"github.com/trezcool/masomo-credentials/core/credentials"
	"github.com/trezcool/masomo-credentials/core/events"
	"github.com/trezcool/masomo-credentials/core/program"
	"github.com/trezcool/masomo-credentials/core/task"
	"github.com/trezcool/masomo-credentials/core/user"
	catalogsvc "github.com/trezcool/masomo-credentials/services/catalog"
	credentialssvc "github.com/trezcool/masomo-credentials/services/credentials"
	emailsvc "github.com/trezcool/masomo-credentials/services/email"
	gradingsvc "github.com/trezcool/masomo-credentials/services/grading"
	logsvc "github.com/trezcool/masomo-credentials/services/logger"
	queuesvc "github.com/trezcool/masomo-credentials/services/queue"
	tokensvc "github.com/trezcool/masomo-credentials/services/token"
	"github.com/trezcool/masomo-credentials/storage/cache"
	"github.com/trezcool/masomo-credentials/storage/database"
	sqlxrepos "github.com/trezcool/masomo-credentials/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// AppName names the running app in logs.
	AppName string
)

func newLogger(conf *core.Config, app AppName) core.Logger {
	return logsvc.NewLogger(conf, string(app))
}

func newDBLogger(conf *core.Config) core.Logger {
	return logsvc.NewLogger(conf, "db")
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB, core.DBExecutor) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db, db
}

func newRedis(conf *core.Config, logger core.Logger) *redis.Client {
	client, err := cache.NewRedisClient(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
	}
	return client
}

func serviceTokens(conf *core.Config, tokens *tokensvc.Issuer, users user.Repository, scopes []string) credentials.TokenSource {
	return credentialssvc.ServiceTokens(tokens, credentialssvc.ServiceUserByUsername(users, conf.Credentials.ServiceUsername), scopes)
}

func newCatalog(conf *core.Config, client *redis.Client, tokens *tokensvc.Issuer, users user.Repository, logger core.Logger) program.Catalog {
	var catalog program.Catalog
	if conf.Catalog.File != "" {
		catalog = catalogsvc.NewFileCatalog(conf.Catalog.File)
	} else {
		catalog = catalogsvc.NewClient(conf, serviceTokens(conf, tokens, users, catalogsvc.Scopes))
	}
	return cache.NewProgramCache(client, catalog, conf.Tasks.QueuePrefix+":catalog", conf.Catalog.CacheTTL, logger)
}

func newConfigCache(conf *core.Config, client *redis.Client, repo credentials.ConfigRepository, logger core.Logger) *cache.ConfigCache {
	return cache.NewConfigCache(client, repo, conf.Tasks.QueuePrefix, logger)
}

func newGatewayFactory(conf *core.Config, tokens *tokensvc.Issuer, users user.Repository) credentials.GatewayFactory {
	return credentialssvc.NewFactory(conf, tokens, credentialssvc.ServiceUserByUsername(users, conf.Credentials.ServiceUsername))
}

func newGradingClient(conf *core.Config, tokens *tokensvc.Issuer, users user.Repository) *gradingsvc.Client {
	return gradingsvc.NewClient(conf, serviceTokens(conf, tokens, users, gradingsvc.Scopes))
}

func newQueue(conf *core.Config, client *redis.Client) (*queuesvc.RedisQueue, task.Queue) {
	q := queuesvc.NewRedisQueue(client, conf.Tasks.QueuePrefix, conf.Tasks.MaxAttempts)
	return q, q
}

func newBus(logger core.Logger) (*events.Bus, events.Publisher) {
	bus := events.NewBus(events.BusWithLogger(logger))
	return bus, bus
}

func newSettings(conf *core.Config) award.Settings {
	return award.Settings{
		ProgramCertificatesEnabled:  conf.Credentials.ProgramCertificatesEnabled,
		ProgramsWithoutCertificates: conf.Credentials.ProgramsWithoutCertificates,
		RateLimitDelay:              conf.Tasks.RateLimitDelay,
	}
}

func newAlerter(conf *core.Config, mailer core.EmailService, logger core.Logger) task.Alerter {
	return task.NewMailAlerter(mailer, logger, conf.Mail.AlertEmails)
}

func newWorker(conf *core.Config, q *queuesvc.RedisQueue, registry *task.Registry, alerter task.Alerter, logger core.Logger) *queuesvc.Worker {
	return queuesvc.NewWorker(q, registry, alerter, logger, queuesvc.WorkerOptions{
		Concurrency:       conf.Tasks.Concurrency,
		PollInterval:      conf.Tasks.PollInterval,
		VisibilityTimeout: conf.Tasks.VisibilityTimeout,
	})
}

// New returns a new dependency injection dig.Container for the named app.
func New(app string) *dig.Container {
	c := dig.New()

	must(c.Provide(func() AppName { return AppName(app) }))
	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newRedis))
	must(c.Provide(core.NewValidator))
	must(c.Provide(emailsvc.NewService))

	// storage
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewCourseRepository))
	must(c.Provide(sqlxrepos.NewCertificateRepository))
	must(c.Provide(sqlxrepos.NewCredentialsConfigRepository))
	must(c.Provide(newConfigCache))
	must(c.Provide(func(cc *cache.ConfigCache) credentials.ConfigProvider { return cc }))

	// outbound services
	must(c.Provide(tokensvc.NewIssuer))
	must(c.Provide(newGatewayFactory))
	must(c.Provide(newCatalog))
	must(c.Provide(newGradingClient))
	must(c.Provide(func(g *gradingsvc.Client) certificate.Grader { return g }))

	// pipeline
	must(c.Provide(newQueue))
	must(c.Provide(newBus))
	must(c.Provide(newSettings))
	must(c.Provide(program.NewMeter))
	must(c.Provide(func(m *program.Meter) award.CompletionMeter { return m }))
	must(c.Provide(certificate.NewEvaluator))
	must(c.Provide(func(ev *certificate.Evaluator) award.CertificateEvaluator { return ev }))
	must(c.Provide(award.NewOrchestrator))
	must(c.Provide(award.NewTriggers))
	must(c.Provide(task.NewRegistry))
	must(c.Provide(newAlerter))
	must(c.Provide(newWorker))
	must(c.Provide(echoapi.NewServerFromConfig))
	must(c.Provide(user.NewService))

	return c
}

// Wire registers the task handlers and subscribes the triggers to the bus.
func Wire(
	registry *task.Registry,
	orch *award.Orchestrator,
	configs credentials.ConfigProvider,
	triggers *award.Triggers,
	bus *events.Bus,
	validate *validator.Validate,
	translator ut.Translator,
) {
	award.RegisterTasks(registry, orch, configs, validate, translator)
	triggers.Subscribe(bus)
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
