package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/countwise/countwise/internal/app"
	"github.com/countwise/countwise/internal/notify"
	"github.com/countwise/countwise/internal/platform/cache"
	"github.com/countwise/countwise/internal/platform/db"
	"github.com/countwise/countwise/internal/sweep"
	"github.com/countwise/countwise/jobs"
)

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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()

	dispatcher := notify.NewAsynqDispatcher(asynqClient, cfg.NotifyTimeout, logger)
	deduper := notify.NewDeduper(redisClient, cfg.SweepDedupWindow)
	sweepRepo := sweep.NewRepository(pool)
	sweepService := sweep.NewService(sweepRepo, dispatcher, deduper, cfg.SweepStaleness, logger)

	overdueTask, err := jobs.NewSweepOverdueTask()
	if err != nil {
		logger.Error("build overdue task", slog.Any("error", err))
		os.Exit(1)
	}
	reminderTask, err := jobs.NewSweepReminderTask()
	if err != nil {
		logger.Error("build reminder task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSweepOverdue, Handler: sweep.NewOverdueHandler(sweepService, logger)},
			{Type: jobs.TaskSweepReminder, Handler: sweep.NewReminderHandler(sweepService, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.SweepOverdueCron, Task: overdueTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.SweepReminderCron, Task: reminderTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
