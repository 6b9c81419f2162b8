package services

import (
	"context"
	"testing"
	"time"
	"transit-tracking-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetentionCleanup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.shifts.Start(ctx, driver, 1)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err = env.locations.Report(ctx, driver, domain.LocationReport{Latitude: 42.87, Longitude: 74.57})
		require.NoError(t, err)
		env.clock.Advance(24 * time.Hour)
	}
	// samples now sit at 96h, 72h, 48h and 24h old

	n, err := env.retention.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = env.retention.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestRetentionRejectsZeroHorizon(t *testing.T) {
	env := newTestEnv(t)
	env.retention.Horizon = 0

	_, err := env.retention.Cleanup(context.Background())
	assert.Error(t, err)
}

func TestRetentionRunStopsWithContext(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		env.retention.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
