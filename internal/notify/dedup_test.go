package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestDeduperFirstInWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	deduper := NewDeduper(client, time.Hour)
	now := time.Date(2026, 5, 1, 12, 10, 0, 0, time.UTC)

	require.True(t, deduper.FirstInWindow(context.Background(), EventItemReminder, 100, now))
	require.False(t, deduper.FirstInWindow(context.Background(), EventItemReminder, 100, now.Add(20*time.Minute)))

	// other entity and other event type are independent
	require.True(t, deduper.FirstInWindow(context.Background(), EventItemReminder, 101, now))
	require.True(t, deduper.FirstInWindow(context.Background(), EventRequestOverdue, 100, now))

	// next window fires again
	require.True(t, deduper.FirstInWindow(context.Background(), EventItemReminder, 100, now.Add(time.Hour)))
}

func TestDeduperDegradesWithoutRedis(t *testing.T) {
	var deduper *Deduper
	require.True(t, deduper.FirstInWindow(context.Background(), EventItemReminder, 1, time.Now()))
}

func TestNewEventEnvelope(t *testing.T) {
	event := NewEvent(EventBatchSubmitted, map[string]any{"count": 3})
	require.NotEmpty(t, event.ID)
	require.Equal(t, EventBatchSubmitted, event.Type)
	require.False(t, event.OccurredAt.IsZero())
	require.Equal(t, 3, event.Payload["count"])
}
