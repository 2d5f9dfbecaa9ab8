// Package config loads runtime configuration from an optional YAML file and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when CONFIG_PATH is unset and the file exists.
const DefaultPath = "configs/config.yaml"

// Config aggregates runtime configuration used by the API and the worker.
type Config struct {
	App        AppConfig        `yaml:"app"`
	HTTP       HTTPConfig       `yaml:"http"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Routing    RoutingConfig    `yaml:"routing"`
	Exposure   ExposureConfig   `yaml:"exposure"`
	AirQuality AirQualityConfig `yaml:"airQuality"`
	Valkey     ValkeyConfig     `yaml:"valkey"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Worker     WorkerConfig     `yaml:"worker"`
}

// AppConfig identifies the deployment.
type AppConfig struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	ReadTimeout        time.Duration `yaml:"readTimeout"`
	WriteTimeout       time.Duration `yaml:"writeTimeout"`
	IdleTimeout        time.Duration `yaml:"idleTimeout"`
	CORSAllowedOrigins []string      `yaml:"corsAllowedOrigins"`
}

// ProvidersConfig carries credentials and endpoints for upstream APIs.
// An empty key leaves that provider unconfigured.
type ProvidersConfig struct {
	OpenWeatherAPIKey      string `yaml:"openWeatherApiKey"`
	GraphHopperAPIKey      string `yaml:"graphHopperApiKey"`
	OpenRouteServiceAPIKey string `yaml:"openRouteServiceApiKey"`
	MapboxAccessToken      string `yaml:"mapboxAccessToken"`
	OSRMBaseURL            string `yaml:"osrmBaseUrl"`
	OSRMDisabled           bool   `yaml:"osrmDisabled"`
}

// RoutingConfig tunes route acquisition.
type RoutingConfig struct {
	ProviderTimeout time.Duration `yaml:"providerTimeout"`
	// MergeProviders collects routes from every answering provider.
	MergeProviders bool `yaml:"mergeProviders"`
}

// ExposureConfig tunes route enrichment.
type ExposureConfig struct {
	SampleTarget     int           `yaml:"sampleTarget"`
	QueryTimeout     time.Duration `yaml:"queryTimeout"`
	RouteConcurrency int           `yaml:"routeConcurrency"`
}

// AirQualityConfig tunes the reading cache.
type AirQualityConfig struct {
	CacheTTL          time.Duration `yaml:"cacheTtl"`
	StaleIfErrorTTL   time.Duration `yaml:"staleIfErrorTtl"`
	RegionConcurrency int           `yaml:"regionConcurrency"`
}

// ValkeyConfig points at the shared cache. An empty Addr keeps the cache in memory.
type ValkeyConfig struct {
	Addr   string `yaml:"addr"`
	Prefix string `yaml:"prefix"`
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	OTLPEndpoint string  `yaml:"otlpEndpoint"`
	SampleRatio  float64 `yaml:"sampleRatio"`
}

// WorkerConfig controls the cache warm-up worker.
type WorkerConfig struct {
	Port               string        `yaml:"port"`
	Interval           time.Duration `yaml:"interval"`
	Concurrency        int           `yaml:"concurrency"`
	PointTimeout       time.Duration `yaml:"pointTimeout"`
	PubSubProjectID    string        `yaml:"pubsubProjectId"`
	PubSubSubscription string        `yaml:"pubsubSubscription"`
}

// PubSubEnabled reports whether the worker should listen for Pub/Sub triggers.
func (w WorkerConfig) PubSubEnabled() bool {
	return w.PubSubProjectID != "" && w.PubSubSubscription != ""
}

// IsProduction reports whether the app runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Load reads configuration from CONFIG_PATH (or DefaultPath when present) and
// applies environment overrides.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat(DefaultPath); err == nil {
		if err := hydrateFromFile(cfg, DefaultPath); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)
	cfg.Providers.scrubPlaceholders()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("APP_PORT"); v != "" {
		cfg.App.Port = v
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.App.Environment = v
	}
	if v := os.Getenv("OPENWEATHER_API_KEY"); v != "" {
		cfg.Providers.OpenWeatherAPIKey = v
	}
	if v := os.Getenv("GRAPHHOPPER_API_KEY"); v != "" {
		cfg.Providers.GraphHopperAPIKey = v
	}
	if v := os.Getenv("OPENROUTESERVICE_API_KEY"); v != "" {
		cfg.Providers.OpenRouteServiceAPIKey = v
	}
	if v := os.Getenv("MAPBOX_ACCESS_TOKEN"); v != "" {
		cfg.Providers.MapboxAccessToken = v
	}
	if v := os.Getenv("OSRM_BASE_URL"); v != "" {
		cfg.Providers.OSRMBaseURL = v
	}
	if v := os.Getenv("OSRM_DISABLED"); v != "" {
		cfg.Providers.OSRMDisabled = parseBool(v)
	}
	if v := os.Getenv("ROUTING_MERGE_PROVIDERS"); v != "" {
		cfg.Routing.MergeProviders = parseBool(v)
	}
	if v := os.Getenv("VALKEY_ADDR"); v != "" {
		cfg.Valkey.Addr = v
	}
	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		cfg.Telemetry.Enabled = parseBool(v)
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}
	if v := os.Getenv("OTEL_TRACES_SAMPLER_ARG"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Telemetry.SampleRatio = parsed
		}
	}
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		cfg.Worker.PubSubProjectID = v
	}
	if v := os.Getenv("PUBSUB_SUBSCRIPTION"); v != "" {
		cfg.Worker.PubSubSubscription = v
	}
	if v := os.Getenv("WORKER_PORT"); v != "" {
		cfg.Worker.Port = v
	}
	if v := os.Getenv("WORKER_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Worker.Interval = parsed
		}
	}
	if v := os.Getenv("WORKER_CONCURRENCY"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Worker.Concurrency = parsed
		}
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.CORSAllowedOrigins = splitList(v)
	}
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Port:        "8080",
			Environment: "development",
		},
		HTTP: HTTPConfig{
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       60 * time.Second,
			IdleTimeout:        60 * time.Second,
			CORSAllowedOrigins: []string{"http://localhost:3000"},
		},
		Providers: ProvidersConfig{
			OSRMBaseURL: "https://router.project-osrm.org",
		},
		Routing: RoutingConfig{
			ProviderTimeout: 10 * time.Second,
		},
		Exposure: ExposureConfig{
			SampleTarget:     5,
			QueryTimeout:     10 * time.Second,
			RouteConcurrency: 4,
		},
		AirQuality: AirQualityConfig{
			CacheTTL:          5 * time.Minute,
			StaleIfErrorTTL:   30 * time.Minute,
			RegionConcurrency: 4,
		},
		Valkey: ValkeyConfig{
			Prefix: "airwatch",
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
			SampleRatio:  1,
		},
		Worker: WorkerConfig{
			Port:         "8081",
			Interval:     10 * time.Minute,
			Concurrency:  3,
			PointTimeout: 30 * time.Second,
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.App.Port) == "" {
		return errors.New("app.port cannot be empty")
	}
	if c.Routing.ProviderTimeout <= 0 {
		return errors.New("routing.providerTimeout must be positive")
	}
	if c.Exposure.SampleTarget <= 0 {
		return errors.New("exposure.sampleTarget must be positive")
	}
	if c.Exposure.QueryTimeout <= 0 {
		return errors.New("exposure.queryTimeout must be positive")
	}
	if c.AirQuality.CacheTTL <= 0 {
		return errors.New("airQuality.cacheTtl must be positive")
	}
	if c.AirQuality.StaleIfErrorTTL < c.AirQuality.CacheTTL {
		return errors.New("airQuality.staleIfErrorTtl cannot be shorter than airQuality.cacheTtl")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return errors.New("telemetry.sampleRatio must be between 0 and 1")
	}
	if c.Worker.Interval <= 0 {
		return errors.New("worker.interval must be positive")
	}
	if c.Worker.Concurrency <= 0 {
		return errors.New("worker.concurrency must be positive")
	}
	if (c.Worker.PubSubProjectID == "") != (c.Worker.PubSubSubscription == "") {
		return errors.New("worker.pubsubProjectId and worker.pubsubSubscription must be set together")
	}
	return nil
}

// scrubPlaceholders clears credentials still holding template values such
// as "your_openweather_api_key_here".
func (p *ProvidersConfig) scrubPlaceholders() {
	for _, key := range []*string{
		&p.OpenWeatherAPIKey,
		&p.GraphHopperAPIKey,
		&p.OpenRouteServiceAPIKey,
		&p.MapboxAccessToken,
	} {
		if IsPlaceholder(*key) {
			*key = ""
		}
	}
}

// IsPlaceholder reports whether a credential is empty or a template value.
func IsPlaceholder(v string) bool {
	v = strings.TrimSpace(strings.ToLower(v))
	return v == "" || (strings.HasPrefix(v, "your_") && strings.HasSuffix(v, "_here"))
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
