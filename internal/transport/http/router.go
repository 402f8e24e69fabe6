// Package httptransport assembles the HTTP router: health and metrics are
// open, everything else sits behind department authentication.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"losflow/internal/platform/metrics"
	"losflow/internal/platform/middleware"
	"losflow/internal/workflow"
)

// NewRouter wires all endpoints.
func NewRouter(h *workflow.Handler, validator middleware.JWTValidator, httpMetrics *metrics.Metrics, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireDepartment(validator, logger))
		h.Register(r)
	})

	return r
}
