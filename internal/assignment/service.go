package assignment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/countwise/countwise/internal/count"
	"github.com/countwise/countwise/internal/notify"
	"github.com/countwise/countwise/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	GetRequestForUpdate(ctx context.Context, id int64) (count.InventoryRequest, error)
	ListPendingItemsForUpdate(ctx context.Context, requestID, centerID int64, filter count.ClassificationFilter) ([]count.CountItem, error)
	AssignItem(ctx context.Context, itemID, counterID int64) (bool, error)
	MarkRequestInProgress(ctx context.Context, requestID int64) error
	CountOpenAssignments(ctx context.Context, counterIDs []int64) (map[int64]int, error)
}

// CounterDirectory resolves counter eligibility through the external
// identity collaborator.
type CounterDirectory interface {
	IsEligibleCounter(ctx context.Context, centerID, counterID int64) (bool, error)
}

// Service distributes request items to counters.
type Service struct {
	repo       RepositoryPort
	directory  CounterDirectory
	dispatcher notify.Dispatcher
	audit      count.AuditPort
	logger     *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, directory CounterDirectory, dispatcher notify.Dispatcher, audit count.AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, directory: directory, dispatcher: dispatcher, audit: audit, logger: logger}
}

// AssignToCounter assigns every pending item of the center matching the
// filter to one counter in a single step.
func (s *Service) AssignToCounter(ctx context.Context, input AssignInput) (Result, error) {
	if input.CounterID == 0 {
		return Result{}, shared.NewValidationError("counter_id", "required")
	}
	if err := s.checkEligibility(ctx, input.CenterID, input.CounterID); err != nil {
		return Result{}, err
	}
	assigned, err := s.assign(ctx, input.RequestID, input.CenterID, input.Filter, func(int) int64 {
		return input.CounterID
	})
	if err != nil {
		return Result{}, err
	}
	s.emitAssigned(ctx, assigned)
	s.recordAudit(ctx, input.Actor, input.RequestID, map[string]any{"counter_id": input.CounterID, "assigned": len(assigned)})
	return Result{AssignedCount: len(assigned)}, nil
}

// Distribute spreads every pending item of the center matching the filter
// across the given counters using the chosen strategy.
func (s *Service) Distribute(ctx context.Context, input DistributeInput) (Result, error) {
	counterIDs := uniqueIDs(input.CounterIDs)
	if len(counterIDs) == 0 {
		return Result{}, shared.NewValidationError("counter_ids", "at least one counter required")
	}
	strategy, err := ParseStrategy(string(input.Strategy))
	if err != nil {
		return Result{}, err
	}
	for _, counterID := range counterIDs {
		if err := s.checkEligibility(ctx, input.CenterID, counterID); err != nil {
			return Result{}, err
		}
	}

	var assigned []count.CountItem
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		items, err := s.pendingItems(ctx, tx, input.RequestID, input.CenterID, input.Filter)
		if err != nil || len(items) == 0 {
			return err
		}
		pick, err := newPicker(ctx, tx, strategy, counterIDs)
		if err != nil {
			return err
		}
		assigned, err = s.assignItems(ctx, tx, items, pick)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	s.emitAssigned(ctx, assigned)
	s.recordAudit(ctx, input.Actor, input.RequestID, map[string]any{"counters": len(counterIDs), "strategy": string(strategy), "assigned": len(assigned)})
	return Result{AssignedCount: len(assigned)}, nil
}

// assign runs the single-target path inside one transaction.
func (s *Service) assign(ctx context.Context, requestID, centerID int64, filter count.ClassificationFilter, pick func(i int) int64) ([]count.CountItem, error) {
	var assigned []count.CountItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		items, err := s.pendingItems(ctx, tx, requestID, centerID, filter)
		if err != nil || len(items) == 0 {
			return err
		}
		assigned, err = s.assignItems(ctx, tx, items, pick)
		return err
	})
	if err != nil {
		return nil, err
	}
	return assigned, nil
}

// pendingItems validates the request/center pair and locks the candidates.
func (s *Service) pendingItems(ctx context.Context, tx TxRepository, requestID, centerID int64, filter count.ClassificationFilter) ([]count.CountItem, error) {
	req, err := tx.GetRequestForUpdate(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != count.RequestStatusSent && req.Status != count.RequestStatusInProgress {
		return nil, &shared.ConflictError{Entity: "request", ID: requestID, Expected: "SENT or IN_PROGRESS", Actual: string(req.Status)}
	}
	if !containsID(req.CenterIDs, centerID) {
		return nil, &shared.NotFoundError{Entity: "center", ID: centerID}
	}
	return tx.ListPendingItemsForUpdate(ctx, requestID, centerID, filter)
}

// assignItems moves each locked item PENDING -> ASSIGNED and flips the
// request to IN_PROGRESS on the first assignment.
func (s *Service) assignItems(ctx context.Context, tx TxRepository, items []count.CountItem, pick func(i int) int64) ([]count.CountItem, error) {
	assigned := make([]count.CountItem, 0, len(items))
	for i, item := range items {
		counterID := pick(i)
		ok, err := tx.AssignItem(ctx, item.ID, counterID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &shared.ConflictError{Entity: "item", ID: item.ID, Expected: string(count.ItemStatusPending), Actual: string(item.Status)}
		}
		item.AssignedTo = counterID
		item.Status = count.ItemStatusAssigned
		assigned = append(assigned, item)
	}
	if len(assigned) > 0 {
		if err := tx.MarkRequestInProgress(ctx, assigned[0].RequestID); err != nil {
			return nil, err
		}
	}
	return assigned, nil
}

func (s *Service) checkEligibility(ctx context.Context, centerID, counterID int64) error {
	if s.directory == nil {
		return nil
	}
	ok, err := s.directory.IsEligibleCounter(ctx, centerID, counterID)
	if err != nil {
		return err
	}
	if !ok {
		return shared.NewValidationError("counter_id", fmt.Sprintf("counter %d not eligible for center %d", counterID, centerID))
	}
	return nil
}

func (s *Service) emitAssigned(ctx context.Context, items []count.CountItem) {
	for _, item := range items {
		notify.Emit(ctx, s.dispatcher, s.logger, notify.NewEvent(notify.EventItemAssigned, map[string]any{
			"item_id":    item.ID,
			"request_id": item.RequestID,
			"center_id":  item.CenterID,
			"counter_id": item.AssignedTo,
			"item_code":  item.ItemCode,
		}))
	}
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Actor, requestID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   "ITEMS_ASSIGN",
		Entity:   "count_request",
		EntityID: fmt.Sprintf("%d", requestID),
		Meta:     meta,
	})
}

// newPicker builds the per-item counter selector for a strategy.
func newPicker(ctx context.Context, tx TxRepository, strategy Strategy, counterIDs []int64) (func(i int) int64, error) {
	switch strategy {
	case StrategyLeastLoaded:
		loads, err := tx.CountOpenAssignments(ctx, counterIDs)
		if err != nil {
			return nil, err
		}
		return func(int) int64 {
			best := counterIDs[0]
			for _, id := range counterIDs[1:] {
				if loads[id] < loads[best] {
					best = id
				}
			}
			loads[best]++
			return best
		}, nil
	default:
		return func(i int) int64 {
			return counterIDs[i%len(counterIDs)]
		}, nil
	}
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
