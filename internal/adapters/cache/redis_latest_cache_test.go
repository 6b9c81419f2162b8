package cache

import (
	"context"
	"testing"
	"time"
	"transit-tracking-service/internal/domain"
	"transit-tracking-service/internal/ports"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisLatestCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewRedisLatestCache(rdb, time.Second), mr
}

func samplePositions() []domain.LatestPosition {
	routeID := int64(3)
	speed := 45.5
	return []domain.LatestPosition{{
		ShiftID:            10,
		VehicleID:          2,
		RegistrationNumber: "B 1001 KG",
		VehicleType:        domain.VehicleBus,
		RouteID:            &routeID,
		Latitude:           42.8746,
		Longitude:          74.5698,
		Speed:              &speed,
		RecordedAt:         time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}}
}

func TestRedisLatestCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	f := ports.LatestFilter{RouteID: 3}

	_, version, ok, err := c.Get(ctx, f)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, f, version, samplePositions()))

	items, _, ok, err := c.Get(ctx, f)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "B 1001 KG", items[0].RegistrationNumber)
	assert.Equal(t, 45.5, *items[0].Speed)
	assert.True(t, items[0].RecordedAt.Equal(samplePositions()[0].RecordedAt))

	// a different filter is a different entry
	_, _, ok, err = c.Get(ctx, ports.LatestFilter{RouteID: 4})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisLatestCacheEmptyResultIsAHit(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, ports.LatestFilter{}, 0, nil))

	items, _, ok, err := c.Get(ctx, ports.LatestFilter{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, items)
}

func TestRedisLatestCacheInvalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	f := ports.LatestFilter{VehicleType: domain.VehicleBus}

	_, version, _, err := c.Get(ctx, f)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, f, version, samplePositions()))

	require.NoError(t, c.Invalidate(ctx))

	_, newVersion, ok, err := c.Get(ctx, f)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, version+1, newVersion)

	// a result computed before the invalidation lands under the old generation
	require.NoError(t, c.Put(ctx, f, version, samplePositions()))
	_, _, ok, err = c.Get(ctx, f)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisLatestCacheExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	f := ports.LatestFilter{}

	require.NoError(t, c.Put(ctx, f, 0, samplePositions()))
	mr.FastForward(2 * time.Second)

	_, _, ok, err := c.Get(ctx, f)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisLatestCacheReportsConnectionErrors(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	_, _, _, err := c.Get(context.Background(), ports.LatestFilter{})
	assert.Error(t, err)
}
