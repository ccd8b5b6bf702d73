package sweep

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/countwise/countwise/internal/count"
	"github.com/countwise/countwise/internal/notify"
)

// RepositoryPort exposes the read-side scans the sweep needs, plus the one
// piece of sweep state it writes: last_reminded_at.
type RepositoryPort interface {
	ListOverdueRequests(ctx context.Context, now time.Time) ([]count.InventoryRequest, error)
	ListStaleAssignedItems(ctx context.Context, cutoff time.Time) ([]count.CountItem, error)
	MarkItemReminded(ctx context.Context, itemID int64, at time.Time) error
}

// Service runs the periodic overdue and reminder passes. Neither pass
// touches workflow status; they only observe and emit events.
type Service struct {
	repo       RepositoryPort
	dispatcher notify.Dispatcher
	deduper    *notify.Deduper
	staleness  time.Duration
	logger     *slog.Logger
}

// NewService builds Service. staleness is how long an item may stay
// ASSIGNED before its counter is reminded.
func NewService(repo RepositoryPort, dispatcher notify.Dispatcher, deduper *notify.Deduper, staleness time.Duration, logger *slog.Logger) *Service {
	if staleness <= 0 {
		staleness = 24 * time.Hour
	}
	return &Service{repo: repo, dispatcher: dispatcher, deduper: deduper, staleness: staleness, logger: logger}
}

// RunOverdue emits one request-overdue event per open request past its due
// date. Re-running inside the same dedup window emits nothing.
func (s *Service) RunOverdue(ctx context.Context, now time.Time) (int, error) {
	requests, err := s.repo.ListOverdueRequests(ctx, now)
	if err != nil {
		return 0, err
	}
	emitted := 0
	for _, req := range requests {
		if !IsRequestOverdue(req, now) {
			continue
		}
		if !s.deduper.FirstInWindow(ctx, notify.EventRequestOverdue, req.ID, now) {
			continue
		}
		notify.Emit(ctx, s.dispatcher, s.logger, notify.NewEvent(notify.EventRequestOverdue, map[string]any{
			"request_id": req.ID,
			"number":     req.Number,
			"due_at":     req.DueAt,
			"status":     string(req.Status),
		}))
		emitted++
	}
	if s.logger != nil {
		s.logger.Info("overdue sweep", slog.Int("scanned", len(requests)), slog.Int("emitted", emitted))
	}
	return emitted, nil
}

// RunReminders emits one item-reminder event per stale assignment and stamps
// last_reminded_at so the next pass skips it until it goes stale again.
func (s *Service) RunReminders(ctx context.Context, now time.Time) (int, error) {
	items, err := s.repo.ListStaleAssignedItems(ctx, now.Add(-s.staleness))
	if err != nil {
		return 0, err
	}
	emitted := 0
	for _, item := range items {
		if !IsItemStale(item, now, s.staleness) {
			continue
		}
		if !s.deduper.FirstInWindow(ctx, notify.EventItemReminder, item.ID, now) {
			continue
		}
		notify.Emit(ctx, s.dispatcher, s.logger, notify.NewEvent(notify.EventItemReminder, map[string]any{
			"item_id":    item.ID,
			"request_id": item.RequestID,
			"center_id":  item.CenterID,
			"counter_id": item.AssignedTo,
			"item_code":  item.ItemCode,
		}))
		if err := s.repo.MarkItemReminded(ctx, item.ID, now); err != nil && s.logger != nil {
			s.logger.Warn("mark item reminded", slog.Int64("item_id", item.ID), slog.Any("error", err))
		}
		emitted++
	}
	if s.logger != nil {
		s.logger.Info("reminder sweep", slog.Int("scanned", len(items)), slog.Int("emitted", emitted))
	}
	return emitted, nil
}

// Run executes both passes concurrently; used for manual triggers.
func (s *Service) Run(ctx context.Context, now time.Time) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.RunOverdue(ctx, now)
		return err
	})
	g.Go(func() error {
		_, err := s.RunReminders(ctx, now)
		return err
	})
	return g.Wait()
}
