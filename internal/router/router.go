package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samims/hwbot/internal/handler"
	customMiddleware "github.com/samims/hwbot/internal/middleware"
)

// NewRouter exposes the ops endpoints: health probes and Prometheus metrics.
func NewRouter(healthHandler *handler.HealthHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(customMiddleware.MetricsMiddleware)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", healthHandler.Liveness)
	r.Get("/readyz", healthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
