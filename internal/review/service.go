package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/countwise/countwise/internal/count"
	"github.com/countwise/countwise/internal/notify"
	"github.com/countwise/countwise/internal/shared"
)

// Decision enumerates manager verdicts on an item under review.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ParseDecision validates an externally supplied decision value.
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionApprove, DecisionReject:
		return Decision(s), nil
	}
	return "", shared.NewValidationError("decision", "must be approve or reject")
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	GetItemForUpdate(ctx context.Context, id int64) (count.CountItem, error)
	GetRequestStatus(ctx context.Context, requestID int64) (count.RequestStatus, error)
	UpdateItemDecision(ctx context.Context, itemID int64, to count.ItemStatus, managerComment string) (bool, error)
	CountOpenItems(ctx context.Context, requestID int64) (int, error)
	CompleteRequest(ctx context.Context, requestID int64) error
}

// DecisionPort records entries in the review decision trail.
type DecisionPort interface {
	Record(ctx context.Context, log shared.DecisionLog) error
}

// Service applies manager decisions: approve toward closure, reject back to
// the rework path.
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

// Decide resolves one REVIEWING item. Approval may complete the owning
// request; rejection requires a non-empty manager comment and makes the
// item eligible for recounting. The prior physical count is retained on
// rejection for the audit trail.
func (s *Service) Decide(ctx context.Context, itemID int64, decision Decision, managerComment string, actor shared.Actor) (count.CountItem, error) {
	if _, err := ParseDecision(string(decision)); err != nil {
		return count.CountItem{}, err
	}
	if decision == DecisionReject && strings.TrimSpace(managerComment) == "" {
		return count.CountItem{}, shared.NewValidationError("manager_comment", "required when rejecting")
	}

	target := count.ItemStatusApproved
	if decision == DecisionReject {
		target = count.ItemStatusRejected
	}

	var updated count.CountItem
	var completedRequest int64
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
		if item.Status != count.ItemStatusReviewing {
			return &shared.ConflictError{Entity: "item", ID: itemID, Expected: string(count.ItemStatusReviewing), Actual: string(item.Status)}
		}
		ok, err := tx.UpdateItemDecision(ctx, itemID, target, managerComment)
		if err != nil {
			return err
		}
		if !ok {
			return &shared.ConflictError{Entity: "item", ID: itemID, Expected: string(count.ItemStatusReviewing), Actual: "concurrently changed"}
		}
		item.Status = target
		item.ManagerComment = managerComment
		updated = item

		if target == count.ItemStatusApproved {
			open, err := tx.CountOpenItems(ctx, item.RequestID)
			if err != nil {
				return err
			}
			if open == 0 {
				if err := tx.CompleteRequest(ctx, item.RequestID); err != nil {
					return err
				}
				completedRequest = item.RequestID
			}
		}
		return nil
	})
	if err != nil {
		return count.CountItem{}, err
	}

	eventType := notify.EventItemApproved
	action := shared.DecisionApprove
	if decision == DecisionReject {
		eventType = notify.EventItemRejected
		action = shared.DecisionReject
	}
	notify.Emit(ctx, s.dispatcher, s.logger, notify.NewEvent(eventType, map[string]any{
		"item_id":         updated.ID,
		"request_id":      updated.RequestID,
		"counter_id":      updated.AssignedTo,
		"manager_comment": managerComment,
	}))
	if s.decisions != nil {
		_ = s.decisions.Record(ctx, shared.DecisionLog{ItemID: itemID, ActorID: actor.UserID, Action: action, Note: managerComment})
	}
	s.recordAudit(ctx, actor, itemID, decision, completedRequest)
	return updated, nil
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Actor, itemID int64, decision Decision, completedRequest int64) {
	if s.audit == nil {
		return
	}
	meta := map[string]any{"decision": string(decision)}
	if completedRequest != 0 {
		meta["completed_request"] = completedRequest
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   "ITEM_DECIDE",
		Entity:   "count_item",
		EntityID: fmt.Sprintf("%d", itemID),
		Meta:     meta,
	})
}
