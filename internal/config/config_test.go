package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, 5*time.Minute, cfg.AirQuality.CacheTTL)
	assert.Equal(t, 30*time.Minute, cfg.AirQuality.StaleIfErrorTTL)
	assert.Equal(t, 5, cfg.Exposure.SampleTarget)
	assert.Equal(t, 3, cfg.Worker.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Worker.PointTimeout)
	assert.Equal(t, "https://router.project-osrm.org", cfg.Providers.OSRMBaseURL)
	assert.False(t, cfg.Worker.PubSubEnabled())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
app:
  port: "9000"
  environment: staging
providers:
  openWeatherApiKey: file-key
  graphHopperApiKey: gh-file
routing:
  providerTimeout: 4s
  mergeProviders: true
airQuality:
  cacheTtl: 2m
  staleIfErrorTtl: 10m
`)
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("APP_ENV", "production")
	t.Setenv("OPENWEATHER_API_KEY", "env-key")
	t.Setenv("VALKEY_ADDR", "localhost:6379")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://airwatch.example, http://localhost:3000 ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, "production", cfg.App.Environment)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "env-key", cfg.Providers.OpenWeatherAPIKey)
	assert.Equal(t, "gh-file", cfg.Providers.GraphHopperAPIKey)
	assert.Equal(t, 4*time.Second, cfg.Routing.ProviderTimeout)
	assert.True(t, cfg.Routing.MergeProviders)
	assert.Equal(t, 2*time.Minute, cfg.AirQuality.CacheTTL)
	assert.Equal(t, "localhost:6379", cfg.Valkey.Addr)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, []string{"https://airwatch.example", "http://localhost:3000"}, cfg.HTTP.CORSAllowedOrigins)
	// Untouched sections keep their defaults.
	assert.Equal(t, 4, cfg.Exposure.RouteConcurrency)
}

func TestLoad_PlaceholderCredentialsAreCleared(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("OPENWEATHER_API_KEY", "your_openweather_api_key_here")
	t.Setenv("MAPBOX_ACCESS_TOKEN", "YOUR_MAPBOX_TOKEN_HERE")
	t.Setenv("GRAPHHOPPER_API_KEY", "real-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.Providers.OpenWeatherAPIKey)
	assert.Empty(t, cfg.Providers.MapboxAccessToken)
	assert.Equal(t, "real-key", cfg.Providers.GraphHopperAPIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, "app: [unterminated"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty port", mutate: func(c *Config) { c.App.Port = " " }, wantErr: "app.port"},
		{name: "stale shorter than ttl", mutate: func(c *Config) { c.AirQuality.StaleIfErrorTTL = time.Minute }, wantErr: "staleIfErrorTtl"},
		{name: "zero sample target", mutate: func(c *Config) { c.Exposure.SampleTarget = 0 }, wantErr: "sampleTarget"},
		{name: "sample ratio above one", mutate: func(c *Config) { c.Telemetry.SampleRatio = 1.5 }, wantErr: "sampleRatio"},
		{name: "pubsub half configured", mutate: func(c *Config) { c.Worker.PubSubProjectID = "proj" }, wantErr: "set together"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsPlaceholder(t *testing.T) {
	assert.True(t, IsPlaceholder(""))
	assert.True(t, IsPlaceholder("your_graphhopper_api_key_here"))
	assert.False(t, IsPlaceholder("abc123"))
	assert.False(t, IsPlaceholder("your_key"))
}
