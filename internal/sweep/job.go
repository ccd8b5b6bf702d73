package sweep

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// NewOverdueHandler returns the asynq handler for the overdue sweep task.
func NewOverdueHandler(svc *Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		n, err := svc.RunOverdue(ctx, time.Now().UTC())
		if err != nil {
			if logger != nil {
				logger.Error("overdue sweep task", slog.Any("error", err))
			}
			return err
		}
		if logger != nil {
			logger.Info("overdue sweep task done", slog.Int("emitted", n))
		}
		return nil
	}
}

// NewReminderHandler returns the asynq handler for the reminder sweep task.
func NewReminderHandler(svc *Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		n, err := svc.RunReminders(ctx, time.Now().UTC())
		if err != nil {
			if logger != nil {
				logger.Error("reminder sweep task", slog.Any("error", err))
			}
			return err
		}
		if logger != nil {
			logger.Info("reminder sweep task done", slog.Int("emitted", n))
		}
		return nil
	}
}
