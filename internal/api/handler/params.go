package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/airwatchuk/airwatch/internal/api/models"
	"github.com/airwatchuk/airwatch/pkg/geo"
)

// coordinateParam reads the {lat} and {lon} path parameters.
func coordinateParam(r *http.Request) (geo.Coordinate, []models.FieldError) {
	var errs []models.FieldError

	lat, err := strconv.ParseFloat(chi.URLParam(r, "lat"), 64)
	if err != nil {
		errs = append(errs, models.FieldError{Field: "lat", Message: "must be a number", Code: "INVALID"})
	}
	lon, err := strconv.ParseFloat(chi.URLParam(r, "lon"), 64)
	if err != nil {
		errs = append(errs, models.FieldError{Field: "lon", Message: "must be a number", Code: "INVALID"})
	}
	if len(errs) > 0 {
		return geo.Coordinate{}, errs
	}

	coord := geo.Coordinate{Lat: lat, Lon: lon}
	if err := coord.Validate(); err != nil {
		return geo.Coordinate{}, []models.FieldError{{Field: "lat,lon", Message: err.Error(), Code: "OUT_OF_RANGE"}}
	}
	return coord, nil
}

// timeLayouts are the accepted forms for history range bounds.
var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// timeQuery parses an optional query parameter as RFC 3339, a bare date or Unix seconds.
// A missing parameter yields the zero time.
func timeQuery(r *http.Request, name string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%s: unrecognised time %q", name, raw)
}
