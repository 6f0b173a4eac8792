package treasury

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const statsCacheKey = "vault:stats"

// StatsCache is a short-TTL Redis snapshot of the vault stats tuple. Stats is
// the hottest read endpoint and touches four stores; the cache keeps those
// reads off the engine without risking stale writes (TTL is seconds).
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

// Find returns the cached stats snapshot, or nil on miss.
func (c *StatsCache) Find(ctx context.Context) (*Stats, error) {
	payload, err := c.client.Get(ctx, statsCacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stats Stats
	if err := json.Unmarshal(payload, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Save stores a stats snapshot with the configured TTL.
func (c *StatsCache) Save(ctx context.Context, stats Stats) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statsCacheKey, payload, c.ttl).Err()
}
