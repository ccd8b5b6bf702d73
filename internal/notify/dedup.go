package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper suppresses duplicate sweep events inside a time window, keyed by
// event type + entity id + window start. Running a sweep twice in the same
// window therefore fires each reminder at most once.
type Deduper struct {
	client *redis.Client
	window time.Duration
}

// NewDeduper constructs a Deduper. window must match the sweep cadence.
func NewDeduper(client *redis.Client, window time.Duration) *Deduper {
	if window <= 0 {
		window = time.Hour
	}
	return &Deduper{client: client, window: window}
}

// Window returns the dedup window size.
func (d *Deduper) Window() time.Duration {
	return d.window
}

// FirstInWindow reports whether this is the first emission of the given
// event for the entity within the current window. Redis unavailability
// degrades to emitting (at-least-once beats silence for reminders).
func (d *Deduper) FirstInWindow(ctx context.Context, eventType EventType, entityID int64, now time.Time) bool {
	if d == nil || d.client == nil {
		return true
	}
	windowStart := now.UTC().Truncate(d.window).Unix()
	key := fmt.Sprintf("notify:dedup:%s:%d:%d", eventType, entityID, windowStart)
	ok, err := d.client.SetNX(ctx, key, 1, d.window).Result()
	if err != nil {
		return true
	}
	return ok
}
