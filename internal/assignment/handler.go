package assignment

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/countwise/countwise/internal/count"
	"github.com/countwise/countwise/internal/platform/httpx"
	"github.com/countwise/countwise/internal/shared"
)

// Handler wires HTTP endpoints for the assignment engine.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers assignment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/requests/{id}/assignments", h.assign)
	r.Post("/requests/{id}/distributions", h.distribute)
}

type classificationPayload struct {
	DivisionCode string `json:"division_code"`
	CategoryCode string `json:"category_code"`
	GroupCode    string `json:"group_code"`
}

func (p classificationPayload) filter() count.ClassificationFilter {
	return count.ClassificationFilter{
		DivisionCode: p.DivisionCode,
		CategoryCode: p.CategoryCode,
		GroupCode:    p.GroupCode,
	}
}

type assignPayload struct {
	CenterID  int64                 `json:"center_id" validate:"required"`
	CounterID int64                 `json:"counter_id" validate:"required"`
	Filter    classificationPayload `json:"filter"`
}

type distributePayload struct {
	CenterID   int64                 `json:"center_id" validate:"required"`
	CounterIDs []int64               `json:"counter_ids" validate:"required,min=1"`
	Strategy   string                `json:"strategy"`
	Filter     classificationPayload `json:"filter"`
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	requestID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	var payload assignPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.AssignToCounter(r.Context(), AssignInput{
		RequestID: requestID,
		CenterID:  payload.CenterID,
		CounterID: payload.CounterID,
		Filter:    payload.Filter.filter(),
		Actor:     actor,
	})
	if err != nil {
		h.logger.Error("assign items", slog.Int64("request_id", requestID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"assigned_count": result.AssignedCount})
}

func (h *Handler) distribute(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	requestID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	var payload distributePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.Distribute(r.Context(), DistributeInput{
		RequestID:  requestID,
		CenterID:   payload.CenterID,
		CounterIDs: payload.CounterIDs,
		Strategy:   Strategy(payload.Strategy),
		Filter:     payload.Filter.filter(),
		Actor:      actor,
	})
	if err != nil {
		h.logger.Error("distribute items", slog.Int64("request_id", requestID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"assigned_count": result.AssignedCount})
}
