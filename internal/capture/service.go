package capture

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
	GetItemForUpdate(ctx context.Context, id int64) (count.CountItem, error)
	GetItemsForUpdate(ctx context.Context, ids []int64) ([]count.CountItem, error)
	GetRequestStatus(ctx context.Context, requestID int64) (count.RequestStatus, error)
	UpdateItemCount(ctx context.Context, item count.CountItem, from count.ItemStatus) (bool, error)
	UpdateItemsStatus(ctx context.Context, ids []int64, from, to count.ItemStatus) (int, error)
}

// DecisionPort records entries in the review decision trail.
type DecisionPort interface {
	Record(ctx context.Context, log shared.DecisionLog) error
}

// Service records physical counts and locks validated batches into review.
type Service struct {
	repo       RepositoryPort
	dispatcher notify.Dispatcher
	decisions  DecisionPort
	audit      count.AuditPort
	logger     *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, dispatcher notify.Dispatcher, decisions DecisionPort, audit count.AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, dispatcher: dispatcher, decisions: decisions, audit: audit, logger: logger}
}

// recountable statuses: assigned items, rejected items on the rework path,
// and counted items being corrected before submission.
func recountable(status count.ItemStatus) bool {
	return status == count.ItemStatusAssigned || status == count.ItemStatusRejected || status == count.ItemStatusCounted
}

// RecordCount validates and stores a counter's physical count for one item.
// Re-recording before submission overwrites the prior value; recording after
// submission is a conflict.
func (s *Service) RecordCount(ctx context.Context, itemID int64, physicalCount float64, comment string, actor shared.Actor) (count.CountItem, error) {
	var updated count.CountItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItemForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		reqStatus, err := tx.GetRequestStatus(ctx, item.RequestID)
		if err != nil {
			return err
		}
		if reqStatus.Terminal() {
			return &shared.ConflictError{Entity: "request", ID: item.RequestID, Expected: "open", Actual: string(reqStatus)}
		}
		if !recountable(item.Status) {
			return &shared.ConflictError{Entity: "item", ID: itemID, Expected: "ASSIGNED, REJECTED or COUNTED", Actual: string(item.Status)}
		}
		prior := item.Status
		if err := item.ApplyCount(physicalCount, comment); err != nil {
			return err
		}
		ok, err := tx.UpdateItemCount(ctx, item, prior)
		if err != nil {
			return err
		}
		if !ok {
			return &shared.ConflictError{Entity: "item", ID: itemID, Expected: string(prior), Actual: "concurrently changed"}
		}
		updated = item
		return nil
	})
	if err != nil {
		return count.CountItem{}, err
	}
	s.recordAudit(ctx, actor, "ITEM_COUNT", itemID, map[string]any{"physical_count": physicalCount})
	return updated, nil
}

// SubmissionResult reports a successful batch submission.
type SubmissionResult struct {
	SubmittedCount int
}

// SubmitBatch atomically advances all listed items COUNTED -> REVIEWING.
// If any item is not COUNTED the whole call fails naming every offending id
// and no item changes status.
func (s *Service) SubmitBatch(ctx context.Context, itemIDs []int64, actor shared.Actor) (SubmissionResult, error) {
	ids := uniqueIDs(itemIDs)
	if len(ids) == 0 {
		return SubmissionResult{}, shared.NewValidationError("item_ids", "at least one item required")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		items, err := tx.GetItemsForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		if missing := missingIDs(ids, items); missing != 0 {
			return &shared.NotFoundError{Entity: "item", ID: missing}
		}
		requestIDs := make(map[int64]struct{})
		var offenders []int64
		for _, item := range items {
			requestIDs[item.RequestID] = struct{}{}
			if item.Status != count.ItemStatusCounted {
				offenders = append(offenders, item.ID)
			}
		}
		if len(offenders) > 0 {
			return &shared.ValidationError{Field: "item_ids", Reason: "every item must be COUNTED before submission", IDs: offenders}
		}
		for requestID := range requestIDs {
			reqStatus, err := tx.GetRequestStatus(ctx, requestID)
			if err != nil {
				return err
			}
			if reqStatus.Terminal() {
				return &shared.ConflictError{Entity: "request", ID: requestID, Expected: "open", Actual: string(reqStatus)}
			}
		}
		n, err := tx.UpdateItemsStatus(ctx, ids, count.ItemStatusCounted, count.ItemStatusReviewing)
		if err != nil {
			return err
		}
		if n != len(ids) {
			return &shared.ConflictError{Entity: "item batch", ID: ids[0], Expected: string(count.ItemStatusCounted), Actual: "concurrently changed"}
		}
		return nil
	})
	if err != nil {
		return SubmissionResult{}, err
	}
	notify.Emit(ctx, s.dispatcher, s.logger, notify.NewEvent(notify.EventBatchSubmitted, map[string]any{
		"item_ids": ids,
		"count":    len(ids),
	}))
	if s.decisions != nil {
		for _, id := range ids {
			_ = s.decisions.Record(ctx, shared.DecisionLog{ItemID: id, ActorID: actor.UserID, Action: shared.DecisionSubmit})
		}
	}
	s.recordAudit(ctx, actor, "BATCH_SUBMIT", ids[0], map[string]any{"count": len(ids)})
	return SubmissionResult{SubmittedCount: len(ids)}, nil
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Actor, action string, itemID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   "count_item",
		EntityID: fmt.Sprintf("%d", itemID),
		Meta:     meta,
	})
}

// missingIDs returns the first requested id absent from the loaded items,
// or zero when everything resolved.
func missingIDs(ids []int64, items []count.CountItem) int64 {
	found := make(map[int64]struct{}, len(items))
	for _, item := range items {
		found[item.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return id
		}
	}
	return 0
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
