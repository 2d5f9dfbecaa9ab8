// Package models provides request and response models for the AirWatch API.
package models

import (
	"strconv"
	"time"
)

// Point is a coordinate as sent by clients. Pointer fields distinguish a
// missing value from zero latitude or longitude.
type Point struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// Validate returns field errors for missing or out-of-range components.
// field prefixes each error, e.g. "origin".
func (p *Point) Validate(field string) []FieldError {
	if p == nil {
		return []FieldError{{Field: field, Message: "required", Code: "REQUIRED"}}
	}

	var errs []FieldError
	switch {
	case p.Lat == nil:
		errs = append(errs, FieldError{Field: field + ".lat", Message: "required", Code: "REQUIRED"})
	case *p.Lat < -90 || *p.Lat > 90:
		errs = append(errs, FieldError{Field: field + ".lat", Message: "must be between -90 and 90", Code: "OUT_OF_RANGE"})
	}
	switch {
	case p.Lon == nil:
		errs = append(errs, FieldError{Field: field + ".lon", Message: "required", Code: "REQUIRED"})
	case *p.Lon < -180 || *p.Lon > 180:
		errs = append(errs, FieldError{Field: field + ".lon", Message: "must be between -180 and 180", Code: "OUT_OF_RANGE"})
	}
	return errs
}

// HealthStatus represents the health status of a service.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Timestamp is a helper type for time.Time with RFC3339 JSON formatting.
type Timestamp time.Time

// MarshalJSON implements json.Marshaler for Timestamp.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(time.Time(t).UTC().Format(time.RFC3339))), nil
}

// UnmarshalJSON implements json.Unmarshaler for Timestamp.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}
