package notify

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates workflow events delivered through the dispatcher.
type EventType string

const (
	EventItemAssigned   EventType = "item-assigned"
	EventBatchSubmitted EventType = "batch-submitted"
	EventItemApproved   EventType = "item-approved"
	EventItemRejected   EventType = "item-rejected"
	EventRequestOverdue EventType = "request-overdue"
	EventItemReminder   EventType = "item-reminder"
)

// Event is the envelope handed to the external notification dispatcher.
type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload"`
}

// NewEvent wraps a payload in an event envelope.
func NewEvent(eventType EventType, payload map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}
