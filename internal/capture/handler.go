package capture

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

// Handler wires HTTP endpoints for count capture and batch submission.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers capture routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/items/{id}/count", h.recordCount)
	r.Post("/items/submissions", h.submitBatch)
}

type recordCountPayload struct {
	PhysicalCount *float64 `json:"physical_count" validate:"required"`
	Comment       string   `json:"comment"`
}

type submitBatchPayload struct {
	ItemIDs []int64 `json:"item_ids" validate:"required,min=1"`
}

type submissionView struct {
	SubmittedCount int `json:"submitted_count"`
}

func (h *Handler) recordCount(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	var payload recordCountPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	item, err := h.service.RecordCount(r.Context(), itemID, *payload.PhysicalCount, payload.Comment, actor)
	if err != nil {
		h.logger.Error("record count", slog.Int64("item_id", itemID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, count.NewItemView(item))
}

func (h *Handler) submitBatch(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	var payload submitBatchPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.SubmitBatch(r.Context(), payload.ItemIDs, actor)
	if err != nil {
		h.logger.Error("submit batch", slog.Int("items", len(payload.ItemIDs)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, submissionView{SubmittedCount: result.SubmittedCount})
}
