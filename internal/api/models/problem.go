package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 error body, served as application/problem+json.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	// TraceID echoes the X-Request-Id of the failed request.
	TraceID string       `json:"traceId"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError points at one invalid request field, e.g. "origin.lat".
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Problem type URIs.
const (
	ProblemTypeValidation       = "https://api.airwatch.uk/problems/validation-error"
	ProblemTypeNotFound         = "https://api.airwatch.uk/problems/not-found"
	ProblemTypeTooManyRequests  = "https://api.airwatch.uk/problems/too-many-requests"
	ProblemTypeTLSRequired      = "https://api.airwatch.uk/problems/tls-required"
	ProblemTypeUnsupportedMedia = "https://api.airwatch.uk/problems/unsupported-media-type"
	ProblemTypeInternal         = "https://api.airwatch.uk/problems/internal-error"
	ProblemTypeUnavailable      = "https://api.airwatch.uk/problems/service-unavailable"
	ProblemTypeUpstream         = "https://api.airwatch.uk/problems/upstream-error"
)

type problemKind struct {
	typ    string
	title  string
	status int
}

var (
	kindValidation       = problemKind{ProblemTypeValidation, "Validation error", http.StatusBadRequest}
	kindNotFound         = problemKind{ProblemTypeNotFound, "Not found", http.StatusNotFound}
	kindTooManyRequests  = problemKind{ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests}
	kindTLSRequired      = problemKind{ProblemTypeTLSRequired, "TLS required", http.StatusForbidden}
	kindUnsupportedMedia = problemKind{ProblemTypeUnsupportedMedia, "Unsupported media type", http.StatusUnsupportedMediaType}
	kindInternal         = problemKind{ProblemTypeInternal, "Internal server error", http.StatusInternalServerError}
	kindUpstream         = problemKind{ProblemTypeUpstream, "Upstream provider error", http.StatusBadGateway}
	kindUnavailable      = problemKind{ProblemTypeUnavailable, "Service unavailable", http.StatusServiceUnavailable}
)

func (k problemKind) new(traceID, detail string) *Problem {
	return &Problem{Type: k.typ, Title: k.title, Status: k.status, Detail: detail, TraceID: traceID}
}

// Write sends the Problem with its status code and the request ID header.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set("X-Request-Id", p.TraceID)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest creates a 400 validation problem.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	p := kindValidation.new(traceID, detail)
	p.Errors = errors
	return p
}

// NewNotFound creates a 404 problem.
func NewNotFound(traceID, detail string) *Problem {
	return kindNotFound.new(traceID, detail)
}

// NewTooManyRequests creates a 429 problem.
func NewTooManyRequests(traceID, detail string) *Problem {
	return kindTooManyRequests.new(traceID, detail)
}

// NewTLSRequired creates a 403 problem for plain HTTP requests.
func NewTLSRequired(traceID, detail string) *Problem {
	return kindTLSRequired.new(traceID, detail)
}

// NewUnsupportedMedia creates a 415 problem.
func NewUnsupportedMedia(traceID, detail string) *Problem {
	return kindUnsupportedMedia.new(traceID, detail)
}

// NewInternalError creates a 500 problem.
func NewInternalError(traceID, detail string) *Problem {
	return kindInternal.new(traceID, detail)
}

// NewBadGateway creates a 502 problem for failures of an upstream data provider.
func NewBadGateway(traceID, detail string) *Problem {
	return kindUpstream.new(traceID, detail)
}

// NewServiceUnavailable creates a 503 problem.
func NewServiceUnavailable(traceID, detail string) *Problem {
	return kindUnavailable.new(traceID, detail)
}
