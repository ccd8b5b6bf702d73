package review

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

// Handler wires HTTP endpoints for the review protocol.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers review routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/items/{id}/decision", h.decide)
}

type decisionPayload struct {
	Decision       string `json:"decision" validate:"required,oneof=approve reject"`
	ManagerComment string `json:"manager_comment"`
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request) {
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
	var payload decisionPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	item, err := h.service.Decide(r.Context(), itemID, Decision(payload.Decision), payload.ManagerComment, actor)
	if err != nil {
		h.logger.Error("decide item", slog.Int64("item_id", itemID), slog.String("decision", payload.Decision), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, count.NewItemView(item))
}
