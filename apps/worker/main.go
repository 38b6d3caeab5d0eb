package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/masomo-credentials/apps/di"
	"github.com/trezcool/masomo-credentials/core"
	"github.com/trezcool/masomo-credentials/core/award"
	"github.com/trezcool/masomo-credentials/fs"
	"github.com/trezcool/masomo-credentials/services/queue"
)

func main() {
	c := di.New("worker")
	must(c.Invoke(di.Wire))

	must(c.Invoke(func(
		conf *core.Config,
		logger core.Logger,
		dbLoggerParam di.DBLoggerParam,
		db *sqlx.DB,
		rdb *redis.Client,
		worker *queuesvc.Worker,
		orch *award.Orchestrator,
	) {
		// =========================================================================
		// Initialize App

		logger.Info(fmt.Sprintf("Worker initializing : version %q", conf.Build))

		if err := core.ParseEmailTemplates(appfs.FS, "templates/email", true); err != nil {
			logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
		}

		dbLogger := dbLoggerParam.Logger
		defer func() {
			if err := db.Close(); err != nil {
				dbLogger.Fatal("Failed to close", err)
			}
		}()
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error(fmt.Sprintf("closing redis: %v", err), err)
			}
		}()
		defer logger.Info("Worker stopped")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// =========================================================================
		// Start the task workers & the backfill

		worker.Start(ctx)

		scheduler, err := newScheduler(ctx, conf.Backfill.Schedule, &backfillJob{orch: orch, window: conf.Backfill.Window, logger: logger})
		if err != nil {
			logger.Fatal(err.Error(), err)
		}
		scheduler.Start()

		// =========================================================================
		// Shutdown

		<-ctx.Done()
		logger.Info("Start shutdown...")
		<-scheduler.Stop().Done()
		worker.Stop()
	}))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
