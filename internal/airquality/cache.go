package airquality

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/airwatchuk/airwatch/pkg/geo"
)

// Entry is a cached reading with the time it was fetched upstream.
type Entry struct {
	Reading   *Reading  `json:"reading"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Cache stores readings by key. Get returns (nil, nil) on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error
}

// gridResolution is the cache grid size in degrees (roughly 1 km).
const gridResolution = 0.01

// GridKey quantises coord onto the cache grid.
func GridKey(coord geo.Coordinate) string {
	return fmt.Sprintf("aq:current:%.2f:%.2f", snap(coord.Lat), snap(coord.Lon))
}

func snap(v float64) float64 {
	s := math.Round(v/gridResolution) * gridResolution
	if s == 0 {
		return 0 // avoid "-0.00"
	}
	return s
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	entry     *Entry
	expiresAt time.Time
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get returns the entry for key if it has not expired.
func (c *MemoryCache) Get(_ context.Context, key string) (*Entry, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, nil
	}
	return e.entry, nil
}

// Set stores entry for ttl.
func (c *MemoryCache) Set(_ context.Context, key string, entry *Entry, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{entry: entry, expiresAt: c.now().Add(ttl)}
	return nil
}

// Len returns the number of entries, including expired ones not yet evicted.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
