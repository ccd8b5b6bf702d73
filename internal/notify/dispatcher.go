package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/countwise/countwise/jobs"
)

// Dispatcher hands events to the external notification boundary.
// Delivery is best-effort, at-least-once; a failing dispatcher must never
// surface as a workflow-operation failure.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}

// AsynqDispatcher queues events for asynchronous delivery. The enqueue is
// bounded by its own timeout, independent of the workflow transaction.
type AsynqDispatcher struct {
	client  *asynq.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewAsynqDispatcher constructs an AsynqDispatcher.
func NewAsynqDispatcher(client *asynq.Client, timeout time.Duration, logger *slog.Logger) *AsynqDispatcher {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &AsynqDispatcher{client: client, timeout: timeout, logger: logger}
}

// Dispatch enqueues the event on the notification queue. Retries after a
// failed enqueue are asynq's concern, not the calling workflow's.
func (d *AsynqDispatcher) Dispatch(ctx context.Context, event Event) error {
	if d == nil || d.client == nil {
		return errors.New("notify: dispatcher not configured")
	}
	task, err := jobs.NewNotifyDispatchTask(jobs.NotifyDispatchPayload{
		EventID:    event.ID,
		EventType:  string(event.Type),
		OccurredAt: event.OccurredAt,
		Payload:    event.Payload,
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()
	if _, err := d.client.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueNotifications), asynq.MaxRetry(5)); err != nil {
		if d.logger != nil {
			d.logger.Warn("notify dispatch enqueue", slog.String("event", string(event.Type)), slog.Any("error", err))
		}
		return err
	}
	return nil
}

// Emit dispatches and logs instead of propagating failures. Workflow
// services use this after their transaction has committed.
func Emit(ctx context.Context, d Dispatcher, logger *slog.Logger, event Event) {
	if d == nil {
		return
	}
	if err := d.Dispatch(ctx, event); err != nil && logger != nil {
		logger.Warn("notify emit", slog.String("event", string(event.Type)), slog.Any("error", err))
	}
}
