package auditsample

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/countwise/countwise/internal/platform/httpx"
	"github.com/countwise/countwise/internal/shared"
)

// Handler wires HTTP endpoints for audit sampling.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers audit sample routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/audit-samples", h.createSample)
	r.Get("/audit-samples/{id}", h.getSample)
	r.Get("/requests/{id}/audit-samples", h.listSamples)
}

type autoSpecPayload struct {
	Mode string  `json:"mode" validate:"required,oneof=count percent"`
	N    int     `json:"n"`
	P    float64 `json:"p"`
}

type createSamplePayload struct {
	RequestID int64            `json:"request_id" validate:"required"`
	ManualIDs []int64          `json:"manual_ids"`
	Auto      *autoSpecPayload `json:"auto"`
}

type sampleView struct {
	ID        int64          `json:"id"`
	RequestID int64          `json:"request_id"`
	Method    string         `json:"method"`
	Params    map[string]any `json:"params,omitempty"`
	ItemIDs   []int64        `json:"item_ids"`
	CreatedBy int64          `json:"created_by"`
	CreatedAt string         `json:"created_at"`
}

func toSampleView(sample StoredSample) sampleView {
	ids := sample.ItemIDs
	if ids == nil {
		ids = []int64{}
	}
	return sampleView{
		ID:        sample.ID,
		RequestID: sample.RequestID,
		Method:    string(sample.Method),
		Params:    sample.Params,
		ItemIDs:   ids,
		CreatedBy: sample.CreatedBy,
		CreatedAt: sample.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (h *Handler) createSample(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	var payload createSamplePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := CreateSampleInput{RequestID: payload.RequestID, ManualIDs: payload.ManualIDs, Actor: actor}
	if payload.Auto != nil {
		input.Auto = &AutoSpec{Mode: AutoMode(payload.Auto.Mode), N: payload.Auto.N, P: payload.Auto.P}
	}
	sample, err := h.service.CreateSample(r.Context(), input)
	if err != nil {
		h.logger.Error("create audit sample", slog.Int64("request_id", payload.RequestID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toSampleView(sample))
}

func (h *Handler) getSample(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	sample, err := h.service.GetSample(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSampleView(sample))
}

func (h *Handler) listSamples(w http.ResponseWriter, r *http.Request) {
	requestID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	samples, err := h.service.ListSamples(r.Context(), requestID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	views := make([]sampleView, 0, len(samples))
	for _, sample := range samples {
		views = append(views, toSampleView(sample))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"samples": views})
}
