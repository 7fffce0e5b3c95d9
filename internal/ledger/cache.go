package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const summaryCacheKey = "ledger:summary"

// Cache keeps the ledger summary in Redis so reporting reads skip the
// aggregate query. Appends invalidate it.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// GetSummary loads the cached summary. The bool is false on a miss.
func (c *Cache) GetSummary(ctx context.Context) (Summary, bool, error) {
	if c == nil || c.client == nil {
		return Summary{}, false, nil
	}
	raw, err := c.client.Get(ctx, summaryCacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Summary{}, false, nil
		}
		return Summary{}, false, err
	}
	var s Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return Summary{}, false, nil
	}
	return s, true, nil
}

// SetSummary stores the summary with the configured TTL.
func (c *Cache) SetSummary(ctx context.Context, s Summary) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, summaryCacheKey, raw, c.ttl).Err()
}

// Invalidate drops the cached summary.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, summaryCacheKey).Err()
}
