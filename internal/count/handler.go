package count

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/countwise/countwise/internal/platform/httpx"
	"github.com/countwise/countwise/internal/shared"
)

// Handler wires HTTP endpoints for the request lifecycle and query surface.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers request and item routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/requests", h.createRequest)
	r.Get("/requests", h.listRequests)
	r.Get("/requests/{id}", h.getRequest)
	r.Post("/requests/{id}/send", h.sendRequest)
	r.Post("/requests/{id}/cancel", h.cancelRequest)
	r.Get("/requests/{id}/items", h.listRequestItems)
	r.Get("/items", h.listItems)
	r.Get("/items/{id}", h.getItem)
}

type createRequestPayload struct {
	Type      string    `json:"type" validate:"required"`
	CenterIDs []int64   `json:"center_ids" validate:"required,min=1"`
	Comment   string    `json:"comment"`
	DueAt     time.Time `json:"due_at"`
}

type requestView struct {
	ID          int64      `json:"id"`
	Number      string     `json:"number"`
	Type        string     `json:"type"`
	CenterIDs   []int64    `json:"center_ids"`
	Status      string     `json:"status"`
	Comment     string     `json:"comment,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	CreatedBy   int64      `json:"created_by"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// ItemView is the JSON shape of a count item. The capture and review
// handlers return it too so an item renders the same on every endpoint.
type ItemView struct {
	ID             int64      `json:"id"`
	RequestID      int64      `json:"request_id"`
	CenterID       int64      `json:"center_id"`
	ItemCode       string     `json:"item_code"`
	Description    string     `json:"description,omitempty"`
	DivisionCode   string     `json:"division_code,omitempty"`
	CategoryCode   string     `json:"category_code,omitempty"`
	GroupCode      string     `json:"group_code,omitempty"`
	Unit           string     `json:"unit,omitempty"`
	SystemQty      float64    `json:"system_qty"`
	PhysicalQty    *float64   `json:"physical_qty,omitempty"`
	Difference     float64    `json:"difference"`
	AdjustmentType string     `json:"adjustment_type,omitempty"`
	CounterComment string     `json:"counter_comment,omitempty"`
	ManagerComment string     `json:"manager_comment,omitempty"`
	AssignedTo     int64      `json:"assigned_to,omitempty"`
	Status         string     `json:"status"`
	DueAt          *time.Time `json:"due_at,omitempty"`
}

func toRequestView(req InventoryRequest) requestView {
	return requestView{
		ID:          req.ID,
		Number:      req.Number,
		Type:        req.Type,
		CenterIDs:   req.CenterIDs,
		Status:      string(req.Status),
		Comment:     req.Comment,
		DueAt:       optionalTime(req.DueAt),
		CreatedBy:   req.CreatedBy,
		CreatedAt:   optionalTime(req.CreatedAt),
		SentAt:      optionalTime(req.SentAt),
		CompletedAt: optionalTime(req.CompletedAt),
		CancelledAt: optionalTime(req.CancelledAt),
	}
}

// NewItemView maps a CountItem to its response shape.
func NewItemView(item CountItem) ItemView {
	return ItemView{
		ID:             item.ID,
		RequestID:      item.RequestID,
		CenterID:       item.CenterID,
		ItemCode:       item.ItemCode,
		Description:    item.Description,
		DivisionCode:   item.DivisionCode,
		CategoryCode:   item.CategoryCode,
		GroupCode:      item.GroupCode,
		Unit:           item.Unit,
		SystemQty:      item.SystemQty,
		PhysicalQty:    item.PhysicalQty,
		Difference:     item.Difference,
		AdjustmentType: string(item.AdjustmentType),
		CounterComment: item.CounterComment,
		ManagerComment: item.ManagerComment,
		AssignedTo:     item.AssignedTo,
		Status:         string(item.Status),
		DueAt:          optionalTime(item.DueAt),
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (h *Handler) createRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	var payload createRequestPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	req, err := h.service.CreateRequest(r.Context(), CreateRequestInput{
		Type:      payload.Type,
		CenterIDs: payload.CenterIDs,
		Comment:   payload.Comment,
		DueAt:     payload.DueAt,
		Actor:     actor,
	})
	if err != nil {
		h.logger.Error("create request", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRequestView(req))
}

func (h *Handler) sendRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	req, err := h.service.SendRequest(r.Context(), id, actor)
	if err != nil {
		h.logger.Error("send request", slog.Int64("request_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRequestView(req))
}

func (h *Handler) cancelRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	req, err := h.service.CancelRequest(r.Context(), id, actor)
	if err != nil {
		h.logger.Error("cancel request", slog.Int64("request_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRequestView(req))
}

func (h *Handler) getRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	req, err := h.service.GetRequest(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRequestView(req))
}

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := RequestFilter{
		Status: RequestStatus(q.Get("status")),
		Search: q.Get("search"),
		Page:   queryInt(q.Get("page")),
		Limit:  queryInt(q.Get("limit")),
	}
	requests, page, err := h.service.ListRequests(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	views := make([]requestView, 0, len(requests))
	for _, req := range requests {
		views = append(views, toRequestView(req))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"requests": views, "pagination": page})
}

func (h *Handler) listRequestItems(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	filter, err := itemFilterFromQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter.RequestID = id
	h.respondItems(w, r, filter)
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	filter, err := itemFilterFromQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondItems(w, r, filter)
}

func (h *Handler) respondItems(w http.ResponseWriter, r *http.Request, filter ItemFilter) {
	items, page, err := h.service.ListItems(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, NewItemView(item))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": views, "pagination": page})
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewItemView(item))
}

func itemFilterFromQuery(r *http.Request) (ItemFilter, error) {
	q := r.URL.Query()
	filter := ItemFilter{
		Status: ItemStatus(q.Get("status")),
		Classification: ClassificationFilter{
			DivisionCode: q.Get("division_code"),
			CategoryCode: q.Get("category_code"),
			GroupCode:    q.Get("group_code"),
		},
		Page:  queryInt(q.Get("page")),
		Limit: queryInt(q.Get("limit")),
	}
	for name, dst := range map[string]*int64{
		"request_id":  &filter.RequestID,
		"center_id":   &filter.CenterID,
		"assigned_to": &filter.AssignedTo,
	} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return ItemFilter{}, shared.NewValidationError(name, "must be an integer id")
		}
		*dst = id
	}
	return filter, nil
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func queryInt(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
