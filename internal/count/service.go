package count

import (
	"context"
	"fmt"
	"time"

	"github.com/countwise/countwise/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetRequest(ctx context.Context, id int64) (InventoryRequest, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]InventoryRequest, int, error)
	GetItem(ctx context.Context, id int64) (CountItem, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]CountItem, int, error)
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	InsertRequest(ctx context.Context, req InventoryRequest) (int64, error)
	GetRequestForUpdate(ctx context.Context, id int64) (InventoryRequest, error)
	UpdateRequestStatus(ctx context.Context, id int64, from, to RequestStatus) (bool, error)
	NextRequestNumber(ctx context.Context, period string) (int, error)
	ListCatalogEntries(ctx context.Context, centerIDs []int64) ([]CatalogEntry, error)
	InsertItems(ctx context.Context, items []CountItem) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates the request lifecycle: create, send (fan out items),
// cancel, and the read-side query surface.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: func() time.Time { return time.Now().UTC() }}
}

// CreateRequestInput describes a new count request.
type CreateRequestInput struct {
	Type      string
	CenterIDs []int64
	Comment   string
	DueAt     time.Time
	Actor     shared.Actor
}

// CreateRequest persists a draft request with a per-period monotonic number.
func (s *Service) CreateRequest(ctx context.Context, input CreateRequestInput) (InventoryRequest, error) {
	if input.Type == "" {
		return InventoryRequest{}, shared.NewValidationError("type", "required")
	}
	centerIDs := dedupIDs(input.CenterIDs)
	if len(centerIDs) == 0 {
		return InventoryRequest{}, shared.NewValidationError("center_ids", "at least one center required")
	}
	req := InventoryRequest{
		Type:      input.Type,
		CenterIDs: centerIDs,
		Status:    RequestStatusDraft,
		Comment:   input.Comment,
		DueAt:     input.DueAt,
		CreatedBy: input.Actor.UserID,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period := s.now().Format("200601")
		seq, err := tx.NextRequestNumber(ctx, period)
		if err != nil {
			return err
		}
		req.Number = fmt.Sprintf("IC-%s-%04d", period, seq)
		id, err := tx.InsertRequest(ctx, req)
		if err != nil {
			return err
		}
		req.ID = id
		return nil
	})
	if err != nil {
		return InventoryRequest{}, err
	}
	s.recordAudit(ctx, input.Actor, "REQUEST_CREATE", req.ID, map[string]any{"number": req.Number, "centers": len(centerIDs)})
	return req, nil
}

// SendRequest fans the request out into one item per center x catalog entry
// and marks it SENT. A request whose scope yields zero items cannot be sent.
func (s *Service) SendRequest(ctx context.Context, requestID int64, actor shared.Actor) (InventoryRequest, error) {
	var sent InventoryRequest
	var fanned int
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		req, err := tx.GetRequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != RequestStatusDraft {
			return &shared.ConflictError{Entity: "request", ID: requestID, Expected: string(RequestStatusDraft), Actual: string(req.Status)}
		}
		entries, err := tx.ListCatalogEntries(ctx, req.CenterIDs)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return shared.NewValidationError("center_ids", "no catalog entries in scope, request would have zero items")
		}
		items := make([]CountItem, 0, len(entries))
		for _, e := range entries {
			items = append(items, CountItem{
				RequestID:    requestID,
				CenterID:     e.CenterID,
				ItemCode:     e.ItemCode,
				Description:  e.Description,
				DivisionCode: e.DivisionCode,
				CategoryCode: e.CategoryCode,
				GroupCode:    e.GroupCode,
				Unit:         e.Unit,
				SystemQty:    e.SystemQty,
				Status:       ItemStatusPending,
				DueAt:        req.DueAt,
			})
		}
		if err := tx.InsertItems(ctx, items); err != nil {
			return err
		}
		ok, err := tx.UpdateRequestStatus(ctx, requestID, RequestStatusDraft, RequestStatusSent)
		if err != nil {
			return err
		}
		if !ok {
			return &shared.ConflictError{Entity: "request", ID: requestID, Expected: string(RequestStatusDraft), Actual: string(req.Status)}
		}
		fanned = len(items)
		sent = req
		sent.Status = RequestStatusSent
		sent.SentAt = s.now()
		return nil
	})
	if err != nil {
		return InventoryRequest{}, err
	}
	s.recordAudit(ctx, actor, "REQUEST_SEND", requestID, map[string]any{"items": fanned})
	return sent, nil
}

// CancelRequest moves a non-terminal request to CANCELLED. Its items are not
// deleted; every item mutation re-checks the owning request status, so they
// are frozen from further transitions.
func (s *Service) CancelRequest(ctx context.Context, requestID int64, actor shared.Actor) (InventoryRequest, error) {
	var cancelled InventoryRequest
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		req, err := tx.GetRequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status.Terminal() {
			return &shared.ConflictError{Entity: "request", ID: requestID, Expected: "non-terminal", Actual: string(req.Status)}
		}
		ok, err := tx.UpdateRequestStatus(ctx, requestID, req.Status, RequestStatusCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return &shared.ConflictError{Entity: "request", ID: requestID, Expected: string(req.Status), Actual: "concurrently changed"}
		}
		cancelled = req
		cancelled.Status = RequestStatusCancelled
		cancelled.CancelledAt = s.now()
		return nil
	})
	if err != nil {
		return InventoryRequest{}, err
	}
	s.recordAudit(ctx, actor, "REQUEST_CANCEL", requestID, nil)
	return cancelled, nil
}

// GetRequest loads a single request.
func (s *Service) GetRequest(ctx context.Context, id int64) (InventoryRequest, error) {
	return s.repo.GetRequest(ctx, id)
}

// ListRequests returns requests matching the filter with pagination metadata.
func (s *Service) ListRequests(ctx context.Context, filter RequestFilter) ([]InventoryRequest, shared.Pagination, error) {
	if filter.Status != "" {
		if _, err := ParseRequestStatus(string(filter.Status)); err != nil {
			return nil, shared.Pagination{}, err
		}
	}
	requests, total, err := s.repo.ListRequests(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return requests, shared.NewPagination(filter.Page, filter.Limit, total), nil
}

// GetItem loads a single item.
func (s *Service) GetItem(ctx context.Context, id int64) (CountItem, error) {
	return s.repo.GetItem(ctx, id)
}

// ListItems returns items matching the filter with pagination metadata.
func (s *Service) ListItems(ctx context.Context, filter ItemFilter) ([]CountItem, shared.Pagination, error) {
	if filter.Status != "" {
		if _, err := ParseItemStatus(string(filter.Status)); err != nil {
			return nil, shared.Pagination{}, err
		}
	}
	items, total, err := s.repo.ListItems(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(filter.Page, filter.Limit, total), nil
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Actor, action string, requestID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   "count_request",
		EntityID: fmt.Sprintf("%d", requestID),
		Meta:     meta,
	})
}

func dedupIDs(ids []int64) []int64 {
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
