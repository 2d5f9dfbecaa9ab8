// Package handler provides HTTP handlers for the AirWatch API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/airwatchuk/airwatch/internal/airquality"
	"github.com/airwatchuk/airwatch/internal/api/models"
	"github.com/airwatchuk/airwatch/internal/api/response"
	"github.com/airwatchuk/airwatch/internal/provider/resilience"
)

// readyTimeout bounds all readiness checks together.
const readyTimeout = 2 * time.Second

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// ProviderHealthSource reports upstream provider health.
type ProviderHealthSource interface {
	GetAllHealth() []*resilience.ProviderHealth
}

// CacheStatsSource reports air quality cache counters.
type CacheStatsSource interface {
	Stats() airquality.CacheStats
	Configured() bool
}

// OpsConfig holds the dependencies of the ops endpoints. Nil sources are omitted from the output.
type OpsConfig struct {
	Version   string
	BuildTime string
	Registry  ProviderHealthSource
	Cache     CacheStatsSource
	// Checks run on /ready, keyed by dependency name.
	Checks map[string]ReadinessCheck
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
	now func() time.Time
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg, now: time.Now}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
		Details: map[string]any{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. Any failing check returns 503.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	health := models.Health{Status: models.HealthStatusOK, Time: models.Timestamp(h.now())}
	status := http.StatusOK

	if len(h.cfg.Checks) > 0 {
		details := make(map[string]any, len(h.cfg.Checks))
		for name, check := range h.cfg.Checks {
			if err := check(ctx); err != nil {
				details[name] = err.Error()
				health.Status = models.HealthStatusFail
				status = http.StatusServiceUnavailable
				continue
			}
			details[name] = "ok"
		}
		health.Details = details
	}

	response.JSON(w, r, status, health)
}

// SystemStatus handles GET /v1/ops/status - upstream provider health.
// Routing always has the synthetic fallback, so provider failures degrade
// rather than fail the service.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:    models.HealthStatusOK,
		Time:      models.Timestamp(h.now()),
		Providers: []models.ProviderStatus{},
	}

	if h.cfg.Registry != nil {
		for _, ph := range h.cfg.Registry.GetAllHealth() {
			ps := providerStatus(ph)
			if ps.Status != models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
			}
			status.Providers = append(status.Providers, ps)
		}
	}

	if h.cfg.Cache != nil {
		stats := h.cfg.Cache.Stats()
		status.Cache = &models.CacheStatus{
			Hits:        stats.Hits,
			Misses:      stats.Misses,
			StaleServed: stats.StaleServed,
			Configured:  h.cfg.Cache.Configured(),
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func providerStatus(ph *resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:     ph.Name,
		Status:       models.HealthStatusOK,
		CircuitState: ph.CircuitState.String(),
		Failures:     ph.Counts.ConsecutiveFailures,
		Message:      ph.LastError,
	}

	switch {
	case ph.IsUnhealthy():
		ps.Status = models.HealthStatusFail
	case ph.IsDegraded() || ph.FailingSinceLastSuccess():
		ps.Status = models.HealthStatusDegraded
	}

	if ph.LastSuccessAt != nil {
		ts := models.Timestamp(*ph.LastSuccessAt)
		ps.LastSuccessAt = &ts
	}
	if ph.LastFailureAt != nil {
		ts := models.Timestamp(*ph.LastFailureAt)
		ps.LastFailureAt = &ts
	}
	return ps
}
