package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"syscatalog/internal/platform/middleware"
)

// NewRouter wires the public endpoints. The API surface is deliberately one
// route: every CRUD operation travels in the POST envelope.
func NewRouter(h *Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))

	r.Post("/", h.HandleAPI)
	r.Get("/", h.HandleInfo)
	r.Options("/", h.HandleOptions)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
