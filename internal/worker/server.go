package worker

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/airwatchuk/airwatch/internal/api/handler"
	"github.com/airwatchuk/airwatch/internal/api/middleware"
	"github.com/airwatchuk/airwatch/internal/api/response"
)

// NewRouter serves the worker's health and status endpoints. Cloud Run
// probes /v1/ops/health; /v1/worker/refresh reports refresh job counters.
func NewRouter(job *RefreshJob, ops handler.OpsConfig, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))

	opsHandler := handler.NewOpsHandler(ops)
	r.Get("/v1/ops/health", opsHandler.HealthCheck)
	r.Get("/v1/ops/ready", opsHandler.ReadinessCheck)
	r.Get("/v1/ops/status", opsHandler.SystemStatus)

	r.Get("/v1/worker/refresh", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, job.MetricsSnapshot())
	})

	return r
}
