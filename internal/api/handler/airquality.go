package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwatchuk/airwatch/internal/airquality"
	"github.com/airwatchuk/airwatch/internal/api/models"
	"github.com/airwatchuk/airwatch/internal/api/response"
	"github.com/airwatchuk/airwatch/pkg/geo"
)

// AirQualityService serves readings, forecasts, history and regional comparisons.
type AirQualityService interface {
	Current(ctx context.Context, coord geo.Coordinate) (*airquality.Reading, error)
	Forecast(ctx context.Context, coord geo.Coordinate) (*airquality.Forecast, error)
	Historical(ctx context.Context, coord geo.Coordinate, start, end time.Time) (*airquality.History, error)
	Regions(ctx context.Context) ([]airquality.RegionReading, error)
	Rankings(ctx context.Context, pollutant string) (*airquality.Rankings, error)
}

// AirQualityHandler handles air quality endpoints.
type AirQualityHandler struct {
	svc      AirQualityService
	logger   zerolog.Logger
	cacheTTL time.Duration
}

// NewAirQualityHandler creates a new AirQualityHandler. cacheTTL sets the
// client cache lifetime of current readings.
func NewAirQualityHandler(svc AirQualityService, cacheTTL time.Duration, logger zerolog.Logger) *AirQualityHandler {
	return &AirQualityHandler{svc: svc, cacheTTL: cacheTTL, logger: logger}
}

// Current handles GET /v1/air-quality/current/{lat}/{lon}.
func (h *AirQualityHandler) Current(w http.ResponseWriter, r *http.Request) {
	coord, fieldErrs := coordinateParam(r)
	if fieldErrs != nil {
		response.BadRequest(w, r, "invalid coordinates", fieldErrs)
		return
	}

	reading, err := h.svc.Current(r.Context(), coord)
	if err != nil {
		h.writeError(w, r, err, "failed to fetch air quality data")
		return
	}

	response.CacheFor(w, h.cacheTTL)
	response.JSON(w, r, http.StatusOK, reading)
}

// Forecast handles GET /v1/air-quality/forecast/{lat}/{lon}.
func (h *AirQualityHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	coord, fieldErrs := coordinateParam(r)
	if fieldErrs != nil {
		response.BadRequest(w, r, "invalid coordinates", fieldErrs)
		return
	}

	forecast, err := h.svc.Forecast(r.Context(), coord)
	if err != nil {
		h.writeError(w, r, err, "failed to fetch air quality forecast")
		return
	}

	response.JSON(w, r, http.StatusOK, forecast)
}

// History handles GET /v1/air-quality/history/{lat}/{lon}?start=&end=.
func (h *AirQualityHandler) History(w http.ResponseWriter, r *http.Request) {
	coord, fieldErrs := coordinateParam(r)
	if fieldErrs != nil {
		response.BadRequest(w, r, "invalid coordinates", fieldErrs)
		return
	}

	start, err := timeQuery(r, "start")
	if err != nil {
		response.BadRequest(w, r, err.Error(), []models.FieldError{{Field: "start", Message: "must be RFC 3339, YYYY-MM-DD or Unix seconds", Code: "INVALID"}})
		return
	}
	end, err := timeQuery(r, "end")
	if err != nil {
		response.BadRequest(w, r, err.Error(), []models.FieldError{{Field: "end", Message: "must be RFC 3339, YYYY-MM-DD or Unix seconds", Code: "INVALID"}})
		return
	}

	history, err := h.svc.Historical(r.Context(), coord, start, end)
	if err != nil {
		h.writeError(w, r, err, "failed to fetch historical air quality data")
		return
	}

	response.JSON(w, r, http.StatusOK, history)
}

// Regions handles GET /v1/air-quality/regions.
func (h *AirQualityHandler) Regions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.svc.Regions(r.Context())
	if err != nil {
		h.writeError(w, r, err, "failed to fetch regions air quality data")
		return
	}

	response.CacheFor(w, h.cacheTTL)
	response.JSON(w, r, http.StatusOK, regions)
}

// Rankings handles GET /v1/air-quality/rankings?pollutant=.
func (h *AirQualityHandler) Rankings(w http.ResponseWriter, r *http.Request) {
	pollutant := r.URL.Query().Get("pollutant")

	rankings, err := h.svc.Rankings(r.Context(), pollutant)
	if err != nil {
		h.writeError(w, r, err, "failed to fetch pollution rankings")
		return
	}

	response.CacheFor(w, h.cacheTTL)
	response.JSON(w, r, http.StatusOK, rankings)
}

func (h *AirQualityHandler) writeError(w http.ResponseWriter, r *http.Request, err error, detail string) {
	switch {
	case errors.Is(err, airquality.ErrUnknownPollutant):
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: "pollutant", Message: "must be one of aqi, pm2_5, pm10, no2, o3, so2", Code: "INVALID"},
		})
	case errors.Is(err, airquality.ErrNotConfigured):
		response.ServiceUnavailable(w, r, "air quality provider is not configured")
	case errors.Is(err, airquality.ErrProviderUnavailable), errors.Is(err, airquality.ErrNoMeasurements):
		h.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("air quality upstream failure")
		response.BadGateway(w, r, detail)
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("air quality request failed")
		response.InternalError(w, r, detail)
	}
}
