// Package api provides the HTTP API for AirWatch.
package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/airwatchuk/airwatch/internal/api/handler"
	"github.com/airwatchuk/airwatch/internal/api/middleware"
)

// DefaultServiceName labels spans when RouterConfig.ServiceName is empty.
const DefaultServiceName = "airwatch-api"

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// RequireTLS rejects proxied plain-HTTP requests.
	RequireTLS bool
	// CORSAllowedOrigins restricts browser origins; empty allows any.
	CORSAllowedOrigins []string

	CleanRoutes        handler.RouteCalculator
	RoutingProviders   handler.RoutingProviders
	AirQuality         handler.AirQualityService
	AirQualityCacheTTL time.Duration
	Geocoding          handler.GeocodingService
	Ops                handler.OpsConfig
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = DefaultServiceName
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))

	opsHandler := handler.NewOpsHandler(cfg.Ops)
	routeHandler := handler.NewRouteHandler(cfg.CleanRoutes, cfg.RoutingProviders, cfg.Logger)
	airQualityHandler := handler.NewAirQualityHandler(cfg.AirQuality, cfg.AirQualityCacheTTL, cfg.Logger)
	geocodingHandler := handler.NewGeocodingHandler(cfg.Geocoding, cfg.Logger)

	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.Route("/routing", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(expensiveRateLimit)
				r.Use(middleware.RequireJSON)
				r.Post("/calculate-routes", routeHandler.CalculateRoutes)
				r.Post("/calculate-routes.geojson", routeHandler.CalculateRoutesGeoJSON)
			})
			r.With(standardRateLimit).Get("/providers", routeHandler.ListProviders)
		})

		r.Route("/air-quality", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/current/{lat}/{lon}", airQualityHandler.Current)
			r.Get("/forecast/{lat}/{lon}", airQualityHandler.Forecast)
			r.Get("/history/{lat}/{lon}", airQualityHandler.History)
			r.Get("/regions", airQualityHandler.Regions)
			r.Get("/rankings", airQualityHandler.Rankings)
		})

		r.Route("/geocoding", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/search", geocodingHandler.Search)
			r.Get("/postcode/{postcode}", geocodingHandler.Postcode)
			r.Get("/reverse/{lat}/{lon}", geocodingHandler.Reverse)
			r.Get("/providers", geocodingHandler.ListProviders)
		})
	})

	return r
}
