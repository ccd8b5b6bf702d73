package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueNotifications carries outbound notification events.
	QueueNotifications = "notifications"

	// TaskNotifyDispatch delivers one workflow event to the external
	// notification transport.
	TaskNotifyDispatch = "notify:dispatch"
	// TaskSweepOverdue runs the overdue-detection pass.
	TaskSweepOverdue = "sweep:overdue"
	// TaskSweepReminder runs the stale-assignment reminder pass.
	TaskSweepReminder = "sweep:reminder"
)

// NotifyDispatchPayload describes one queued notification event.
type NotifyDispatchPayload struct {
	EventID    string         `json:"event_id"`
	EventType  string         `json:"event_type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload"`
}

// NewNotifyDispatchTask constructs an Asynq task for one event.
func NewNotifyDispatchTask(payload NotifyDispatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotifyDispatch, data), nil
}

// NewSweepOverdueTask constructs the overdue sweep task.
func NewSweepOverdueTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskSweepOverdue, nil), nil
}

// NewSweepReminderTask constructs the reminder sweep task.
func NewSweepReminderTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskSweepReminder, nil), nil
}

// NotifyDeliveryHandler processes TaskNotifyDispatch tasks. Actual transport
// (email/SMS) is an external collaborator; this is the fire-and-forget edge
// where the event leaves the engine.
func NotifyDeliveryHandler(logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload NotifyDispatchPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.EventType == "" {
			return asynq.SkipRetry
		}
		if logger != nil {
			logger.Info("notification dispatched",
				slog.String("event_id", payload.EventID),
				slog.String("event_type", payload.EventType))
		} else {
			fmt.Printf("[jobs] dispatch %s %s\n", payload.EventType, payload.EventID)
		}
		return nil
	}
}
