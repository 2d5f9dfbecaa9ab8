// Package worker warms the shared air quality cache for the UK regions,
// either on a ticker or when triggered over Pub/Sub.
package worker

import (
	"time"

	"github.com/airwatchuk/airwatch/internal/airquality"
	"github.com/airwatchuk/airwatch/pkg/geo"
)

// RefreshTarget is a named location whose reading is kept warm.
type RefreshTarget struct {
	Name       string
	Coordinate geo.Coordinate
}

// RefreshConfig holds configuration for the refresh job.
type RefreshConfig struct {
	// Targets to refresh. If empty, DefaultRefreshTargets is used.
	Targets []RefreshTarget

	// Concurrency is the number of concurrent refreshes.
	// Default: 3
	Concurrency int

	// Timeout bounds each point.
	// Default: 30 seconds
	Timeout time.Duration
}

const (
	DefaultConcurrency = 3
	DefaultTimeout     = 30 * time.Second
)

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Targets:     DefaultRefreshTargets(),
		Concurrency: DefaultConcurrency,
		Timeout:     DefaultTimeout,
	}
}

// DefaultRefreshTargets returns the UK regions served by the regional endpoints.
func DefaultRefreshTargets() []RefreshTarget {
	return TargetsFromRegions(airquality.UKRegions)
}

// TargetsFromRegions converts regions to refresh targets.
func TargetsFromRegions(regions []airquality.Region) []RefreshTarget {
	targets := make([]RefreshTarget, len(regions))
	for i, r := range regions {
		targets[i] = RefreshTarget{Name: r.Name, Coordinate: r.Coordinate}
	}
	return targets
}

func (c RefreshConfig) withDefaults() RefreshConfig {
	if len(c.Targets) == 0 {
		c.Targets = DefaultRefreshTargets()
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}
