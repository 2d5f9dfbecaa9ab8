package models

// Health represents the liveness or readiness of the service.
type Health struct {
	Status  HealthStatus   `json:"status"`
	Time    Timestamp      `json:"time"`
	Details map[string]any `json:"details,omitempty"`
}

// SystemStatus aggregates upstream provider health.
type SystemStatus struct {
	Status    HealthStatus     `json:"status"`
	Time      Timestamp        `json:"time"`
	Providers []ProviderStatus `json:"providers"`
	Cache     *CacheStatus     `json:"cache,omitempty"`
}

// ProviderStatus represents the status of an external provider.
type ProviderStatus struct {
	Provider      string       `json:"provider"`
	Status        HealthStatus `json:"status"`
	CircuitState  string       `json:"circuitState"`
	Failures      uint32       `json:"consecutiveFailures"`
	LastSuccessAt *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *Timestamp   `json:"lastFailureAt,omitempty"`
	Message       string       `json:"message,omitempty"`
}

// CacheStatus reports the air quality cache counters of this process.
type CacheStatus struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	StaleServed int64 `json:"staleServed"`
	Configured  bool  `json:"configured"`
}

// RoutingProvidersResponse lists routing providers and whether each can be used.
type RoutingProvidersResponse struct {
	Providers []RoutingProvider `json:"providers"`
}

// RoutingProvider is one entry in the routing fallback chain.
type RoutingProvider struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Configured bool   `json:"configured"`
}

// GeocodingProvidersResponse lists geocoding providers.
type GeocodingProvidersResponse struct {
	Providers map[string]bool `json:"providers"`
}
