package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/airwatchuk/airwatch/internal/api/models"
	"github.com/airwatchuk/airwatch/internal/api/response"
	"github.com/airwatchuk/airwatch/internal/geocoding"
	"github.com/airwatchuk/airwatch/pkg/geo"
)

// GeocodingService resolves place names, postcodes and coordinates.
type GeocodingService interface {
	Search(ctx context.Context, query string) (*geocoding.SearchResult, error)
	Postcode(ctx context.Context, postcode string) (*geocoding.Location, error)
	Reverse(ctx context.Context, coord geo.Coordinate) (*geocoding.Location, error)
	Providers() map[string]bool
}

// GeocodingHandler handles geocoding endpoints.
type GeocodingHandler struct {
	svc    GeocodingService
	logger zerolog.Logger
}

// NewGeocodingHandler creates a new GeocodingHandler.
func NewGeocodingHandler(svc GeocodingService, logger zerolog.Logger) *GeocodingHandler {
	return &GeocodingHandler{svc: svc, logger: logger}
}

// Search handles GET /v1/geocoding/search?query=.
func (h *GeocodingHandler) Search(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		if errors.Is(err, geocoding.ErrEmptyQuery) {
			response.BadRequest(w, r, "query parameter is required", []models.FieldError{
				{Field: "query", Message: "required", Code: "REQUIRED"},
			})
			return
		}
		h.logger.Error().Err(err).Msg("location search failed")
		response.InternalError(w, r, "failed to search locations")
		return
	}

	response.JSON(w, r, http.StatusOK, result)
}

// Postcode handles GET /v1/geocoding/postcode/{postcode}.
func (h *GeocodingHandler) Postcode(w http.ResponseWriter, r *http.Request) {
	postcode := chi.URLParam(r, "postcode")
	if geocoding.NormalizePostcode(postcode) == "" {
		response.BadRequest(w, r, "postcode is required", []models.FieldError{
			{Field: "postcode", Message: "required", Code: "REQUIRED"},
		})
		return
	}

	loc, err := h.svc.Postcode(r.Context(), postcode)
	if err != nil {
		h.writeLookupError(w, r, err, "postcode not found")
		return
	}

	response.JSON(w, r, http.StatusOK, loc)
}

// Reverse handles GET /v1/geocoding/reverse/{lat}/{lon}.
func (h *GeocodingHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	coord, fieldErrs := coordinateParam(r)
	if fieldErrs != nil {
		response.BadRequest(w, r, "invalid coordinates", fieldErrs)
		return
	}

	loc, err := h.svc.Reverse(r.Context(), coord)
	if err != nil {
		h.writeLookupError(w, r, err, "no location found for coordinates")
		return
	}

	response.JSON(w, r, http.StatusOK, loc)
}

// ListProviders handles GET /v1/geocoding/providers.
func (h *GeocodingHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.GeocodingProvidersResponse{Providers: h.svc.Providers()})
}

func (h *GeocodingHandler) writeLookupError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, geocoding.ErrNotFound):
		response.NotFound(w, r, notFound)
	case errors.Is(err, geocoding.ErrInvalidCoordinates):
		response.BadRequest(w, r, err.Error(), nil)
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("geocoding lookup failed")
		response.InternalError(w, r, "geocoding lookup failed")
	}
}
