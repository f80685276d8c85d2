package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/rbacgate/rbacgate/internal/app"
	jobmetrics "github.com/rbacgate/rbacgate/internal/jobs"
	"github.com/rbacgate/rbacgate/internal/platform/db"
	"github.com/rbacgate/rbacgate/jobs"
)

// purgeSchedule runs the expired-session sweep every fifteen minutes.
const purgeSchedule = "*/15 * * * *"

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	store, closeStore, err := app.OpenSessionStore(ctx, cfg, pool)
	if err != nil {
		logger.Error("open session store", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	sessions := app.NewSessionManager(cfg, store)
	purgeJob := jobs.NewPurgeSessionsJob(sessions, logger, jobmetrics.NewMetrics(nil))

	purgeTask, err := jobs.NewPurgeSessionsTask("scheduled")
	if err != nil {
		logger.Error("build purge task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: cfg.Redis().Queue(),
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPurgeSessions, Handler: purgeJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: purgeSchedule, Task: purgeTask, Options: []asynq.Option{asynq.MaxRetry(3), asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
