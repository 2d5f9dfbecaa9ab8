package models_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airwatchuk/airwatch/internal/api/models"
)

func TestProblem_Write(t *testing.T) {
	p := models.NewBadRequest("req_test123", "invalid input", []models.FieldError{
		{Field: "destination.lon", Message: "must be between -180 and 180"},
	})
	p.Instance = "/v1/routing/calculate-routes"

	w := httptest.NewRecorder()
	p.Write(w)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	assert.Equal(t, "req_test123", w.Header().Get("X-Request-Id"))

	var result models.Problem
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)

	assert.Equal(t, models.ProblemTypeValidation, result.Type)
	assert.Equal(t, "Validation error", result.Title)
	assert.Equal(t, http.StatusBadRequest, result.Status)
	assert.Equal(t, "invalid input", result.Detail)
	assert.Equal(t, "/v1/routing/calculate-routes", result.Instance)
	assert.Equal(t, "req_test123", result.TraceID)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "destination.lon", result.Errors[0].Field)
}

func TestNewBadRequest(t *testing.T) {
	p := models.NewBadRequest("req_123", "origin is required", nil)

	assert.Equal(t, models.ProblemTypeValidation, p.Type)
	assert.Equal(t, "Validation error", p.Title)
	assert.Equal(t, http.StatusBadRequest, p.Status)
	assert.Equal(t, "origin is required", p.Detail)
	assert.Equal(t, "req_123", p.TraceID)
}

func TestProblemConstructors(t *testing.T) {
	tests := []struct {
		name       string
		problem    *models.Problem
		wantType   string
		wantTitle  string
		wantStatus int
	}{
		{
			name:       "not found",
			problem:    models.NewNotFound("req_123", "postcode not found"),
			wantType:   models.ProblemTypeNotFound,
			wantTitle:  "Not found",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "too many requests",
			problem:    models.NewTooManyRequests("req_123", "rate limit exceeded"),
			wantType:   models.ProblemTypeTooManyRequests,
			wantTitle:  "Too many requests",
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "tls required",
			problem:    models.NewTLSRequired("req_123", "This endpoint requires HTTPS"),
			wantType:   models.ProblemTypeTLSRequired,
			wantTitle:  "TLS required",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "unsupported media",
			problem:    models.NewUnsupportedMedia("req_123", "Content-Type must be application/json"),
			wantType:   models.ProblemTypeUnsupportedMedia,
			wantTitle:  "Unsupported media type",
			wantStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:       "internal",
			problem:    models.NewInternalError("req_123", "unexpected"),
			wantType:   models.ProblemTypeInternal,
			wantTitle:  "Internal server error",
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "bad gateway",
			problem:    models.NewBadGateway("req_123", "air quality provider failed"),
			wantType:   models.ProblemTypeUpstream,
			wantTitle:  "Upstream provider error",
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "service unavailable",
			problem:    models.NewServiceUnavailable("req_123", "no provider configured"),
			wantType:   models.ProblemTypeUnavailable,
			wantTitle:  "Service unavailable",
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.problem.Type)
			assert.Equal(t, tt.wantTitle, tt.problem.Title)
			assert.Equal(t, tt.wantStatus, tt.problem.Status)
			assert.Equal(t, "req_123", tt.problem.TraceID)
			assert.NotEmpty(t, tt.problem.Detail)
		})
	}
}
