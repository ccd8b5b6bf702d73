package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/countwise/countwise/internal/app"
	"github.com/countwise/countwise/internal/assignment"
	"github.com/countwise/countwise/internal/auditsample"
	"github.com/countwise/countwise/internal/capture"
	"github.com/countwise/countwise/internal/count"
	"github.com/countwise/countwise/internal/identity"
	"github.com/countwise/countwise/internal/notify"
	"github.com/countwise/countwise/internal/platform/cache"
	"github.com/countwise/countwise/internal/platform/db"
	"github.com/countwise/countwise/internal/review"
	"github.com/countwise/countwise/internal/shared"
	"github.com/countwise/countwise/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	auditLogger := shared.NewAuditLogger(dbpool)
	decisionRecorder := shared.NewDecisionRecorder(dbpool, logger)
	dispatcher := notify.NewAsynqDispatcher(asynqClient, cfg.NotifyTimeout, logger)

	countRepo := count.NewRepository(dbpool)
	countService := count.NewService(countRepo, auditLogger)
	countHandler := count.NewHandler(logger, countService)

	directory := identity.NewDirectory(dbpool)
	assignmentRepo := assignment.NewRepository(dbpool)
	assignmentService := assignment.NewService(assignmentRepo, directory, dispatcher, auditLogger, logger)
	assignmentHandler := assignment.NewHandler(logger, assignmentService)

	captureRepo := capture.NewRepository(dbpool)
	captureService := capture.NewService(captureRepo, dispatcher, decisionRecorder, auditLogger, logger)
	captureHandler := capture.NewHandler(logger, captureService)

	reviewRepo := review.NewRepository(dbpool)
	reviewService := review.NewService(reviewRepo, dispatcher, decisionRecorder, auditLogger, logger)
	reviewHandler := review.NewHandler(logger, reviewService)

	sampleRepo := auditsample.NewRepository(dbpool)
	sampleService := auditsample.NewService(sampleRepo, auditLogger, nil)
	sampleHandler := auditsample.NewHandler(logger, sampleService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Identity:           identity.NewRedisResolver(redisClient),
		CountHandler:       countHandler,
		AssignmentHandler:  assignmentHandler,
		CaptureHandler:     captureHandler,
		ReviewHandler:      reviewHandler,
		AuditSampleHandler: sampleHandler,
		JobHandler:         jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
