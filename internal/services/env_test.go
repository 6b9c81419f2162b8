package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"
	"transit-tracking-service/internal/adapters/repositories"
	"transit-tracking-service/internal/domain"
	"transit-tracking-service/internal/ports"
	"transit-tracking-service/internal/platform/db"

	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type memCache struct {
	mu          sync.Mutex
	entries     map[ports.LatestFilter][]domain.LatestPosition
	invalidated int
}

func (c *memCache) Get(_ context.Context, f ports.LatestFilter) ([]domain.LatestPosition, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items, ok := c.entries[f]
	return items, int64(c.invalidated), ok, nil
}

func (c *memCache) Put(_ context.Context, f ports.LatestFilter, version int64, items []domain.LatestPosition) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if version != int64(c.invalidated) {
		return nil
	}
	if c.entries == nil {
		c.entries = map[ports.LatestFilter][]domain.LatestPosition{}
	}
	c.entries[f] = items
	return nil
}

func (c *memCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
	c.invalidated++
	return nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []domain.LatestPosition
	err       error
}

func (p *recordingPublisher) PublishLocation(_ context.Context, pos domain.LatestPosition) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, pos)
	return p.err
}

type testEnv struct {
	clock     *testClock
	cache     *memCache
	publisher *recordingPublisher
	shifts    *ShiftService
	locations *LocationService
	retention *RetentionService
}

var (
	driver    = domain.Identity{ID: 7, Role: domain.RoleDriver}
	driver2   = domain.Identity{ID: 8, Role: domain.RoleDriver}
	admin     = domain.Identity{ID: 1, Role: domain.RoleAdmin}
	passenger = domain.Identity{ID: 50, Role: domain.RolePassenger}
)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "tracker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, repositories.InitSchema(conn))
	require.NoError(t, repositories.SeedFromJSON(conn, filepath.Join("..", "adapters", "repositories", "testdata", "fleet.json")))

	shiftRepo := repositories.NewSqliteShiftRepository(conn)
	locationRepo := repositories.NewSqliteLocationRepository(conn)
	registry := repositories.NewSqliteRegistry(conn)

	env := &testEnv{
		clock:     &testClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)},
		cache:     &memCache{},
		publisher: &recordingPublisher{},
	}

	env.shifts = NewShiftService(shiftRepo, registry)
	env.shifts.Now = env.clock.Now
	env.shifts.Cache = env.cache

	env.locations = NewLocationService(locationRepo, shiftRepo, registry)
	env.locations.Now = env.clock.Now
	env.locations.Cache = env.cache
	env.locations.Publisher = env.publisher

	env.retention = NewRetentionService(locationRepo, DefaultRetention)
	env.retention.Now = env.clock.Now

	return env
}

func fptr(v float64) *float64 { return &v }
