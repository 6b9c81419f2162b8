package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"transit-tracking-service/internal/domain"
	"transit-tracking-service/internal/ports"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultLatestTTL = 2 * time.Second

	latestKeyPrefix = "tracker:latest"
	latestGenKey    = latestKeyPrefix + ":gen"
)

// Redis-backed implementation of the LatestCache port.
// Entries are keyed by filter and by a generation counter; Invalidate bumps the
// counter, which orphans every existing entry until its TTL expires.
type RedisLatestCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisLatestCache(rdb *redis.Client, ttl time.Duration) *RedisLatestCache {
	if ttl <= 0 {
		ttl = DefaultLatestTTL
	}
	return &RedisLatestCache{rdb: rdb, ttl: ttl}
}

func (c *RedisLatestCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, latestGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("latest cache: read generation: %w", err)
	}
	return gen, nil
}

func latestKey(gen int64, f ports.LatestFilter) string {
	return fmt.Sprintf("%s:%d:route=%d:type=%s:vehicle=%d", latestKeyPrefix, gen, f.RouteID, f.VehicleType, f.VehicleID)
}

func (c *RedisLatestCache) Get(ctx context.Context, f ports.LatestFilter) ([]domain.LatestPosition, int64, bool, error) {
	if c.rdb == nil {
		return nil, 0, false, errors.New("latest cache: redis client is nil")
	}

	gen, err := c.generation(ctx)
	if err != nil {
		return nil, 0, false, err
	}

	raw, err := c.rdb.Get(ctx, latestKey(gen, f)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, gen, false, fmt.Errorf("latest cache: get: %w", err)
	}

	var items []domain.LatestPosition
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, gen, false, fmt.Errorf("latest cache: decode entry: %w", err)
	}
	return items, gen, true, nil
}

func (c *RedisLatestCache) Put(ctx context.Context, f ports.LatestFilter, version int64, items []domain.LatestPosition) error {
	if c.rdb == nil {
		return errors.New("latest cache: redis client is nil")
	}
	if items == nil {
		items = []domain.LatestPosition{}
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("latest cache: encode entry: %w", err)
	}
	if err := c.rdb.Set(ctx, latestKey(version, f), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("latest cache: set: %w", err)
	}
	return nil
}

func (c *RedisLatestCache) Invalidate(ctx context.Context) error {
	if c.rdb == nil {
		return errors.New("latest cache: redis client is nil")
	}
	if err := c.rdb.Incr(ctx, latestGenKey).Err(); err != nil {
		return fmt.Errorf("latest cache: bump generation: %w", err)
	}
	return nil
}
