package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/countwise/countwise/internal/assignment"
	"github.com/countwise/countwise/internal/auditsample"
	"github.com/countwise/countwise/internal/capture"
	"github.com/countwise/countwise/internal/count"
	"github.com/countwise/countwise/internal/review"
	"github.com/countwise/countwise/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Identity           IdentityResolver
	CountHandler       *count.Handler
	AssignmentHandler  *assignment.Handler
	CaptureHandler     *capture.Handler
	ReviewHandler      *review.Handler
	AuditSampleHandler *auditsample.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router for the count workflow API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:   params.Logger,
		Config:   params.Config,
		Identity: params.Identity,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		if params.CountHandler != nil {
			params.CountHandler.MountRoutes(r)
		}
		if params.AssignmentHandler != nil {
			params.AssignmentHandler.MountRoutes(r)
		}
		if params.CaptureHandler != nil {
			params.CaptureHandler.MountRoutes(r)
		}
		if params.ReviewHandler != nil {
			params.ReviewHandler.MountRoutes(r)
		}
		if params.AuditSampleHandler != nil {
			params.AuditSampleHandler.MountRoutes(r)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			params.JobHandler.MountRoutes(r)
		})
	}

	return r
}
