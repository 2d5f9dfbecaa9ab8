package airquality

import (
	"context"
	"encoding/json"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ValkeyCache shares cached readings between the API and worker processes.
type ValkeyCache struct {
	client valkey.Client
	prefix string
}

// NewValkeyCache wraps an existing client. Keys are namespaced under prefix.
func NewValkeyCache(client valkey.Client, prefix string) *ValkeyCache {
	if prefix == "" {
		prefix = "airwatch"
	}
	return &ValkeyCache{client: client, prefix: prefix}
}

// Get returns the cached entry for key, or nil when absent.
func (c *ValkeyCache) Get(ctx context.Context, key string) (*Entry, error) {
	cmd := c.client.B().Get().Key(c.key(key)).Build()
	payload, err := c.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, err
	}

	var entry Entry
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Set stores entry with an expiry of ttl, rounded up to one second.
func (c *ValkeyCache) Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	cmd := c.client.B().Set().Key(c.key(key)).Value(string(payload)).Ex(ttl).Build()
	return c.client.Do(ctx, cmd).Error()
}

// Ping checks connectivity.
func (c *ValkeyCache) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}

func (c *ValkeyCache) key(k string) string {
	return c.prefix + ":" + k
}
