package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dropscope/dropscope/internal/middleware"
)

// NewRouter assembles the service's full HTTP surface. extra middleware
// (e.g. submission rate limiting) is applied after the standard chain.
func NewRouter(h *REST, logger *slog.Logger, extra ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1MB limit
	for _, mw := range extra {
		r.Use(mw)
	}

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/analysis/tasks", func(r chi.Router) {
			r.Post("/", h.SubmitTask)
			r.Get("/{id}/status", h.GetTaskStatus)
			r.Get("/{id}/report", h.GetTaskReport)
			r.Get("/{id}/stream", h.StreamTaskStatus)
			r.Get("/{id}/export", h.ExportTaskResults)
		})
		r.Route("/reports", func(r chi.Router) {
			r.Post("/", h.CreateReport)
			r.Get("/", h.ListReports)
			r.Get("/{id}", h.GetReport)
			r.Delete("/{id}", h.DeleteReport)
		})
	})
	return r
}
