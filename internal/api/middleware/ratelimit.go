package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/airwatchuk/airwatch/internal/api/models"
)

// RateLimitConfig is a per-client request budget.
type RateLimitConfig struct {
	// Name appears in the 429 detail, e.g. "route calculation".
	Name         string
	RequestLimit int
	WindowLength time.Duration
}

var (
	// ExpensiveRateLimit covers route calculation, which fans out to routing
	// providers and one air quality lookup per sampled point.
	ExpensiveRateLimit = RateLimitConfig{
		Name:         "route calculation",
		RequestLimit: 30,
		WindowLength: time.Minute,
	}

	// StandardRateLimit covers air quality and geocoding lookups.
	StandardRateLimit = RateLimitConfig{
		Name:         "lookup",
		RequestLimit: 100,
		WindowLength: time.Minute,
	}
)

func (c RateLimitConfig) detail() string {
	name := c.Name
	if name == "" {
		name = "request"
	}
	return fmt.Sprintf("Rate limit exceeded: %d %s requests per %s. Please try again later.",
		c.RequestLimit, name, c.WindowLength)
}

// RateLimitByIP limits each client IP, as resolved by chi's RealIP middleware.
// Rejected requests get a 429 Problem with Retry-After set to the window length.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(cfg.WindowLength.Round(time.Second).Seconds()))
	detail := cfg.detail()

	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			problem := models.NewTooManyRequests(GetRequestID(r.Context()), detail)
			problem.Instance = r.URL.Path

			w.Header().Set("Retry-After", retryAfter)
			problem.Write(w)
		}),
	)
}
