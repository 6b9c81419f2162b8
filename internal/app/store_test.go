package app

import (
	"context"
	"path/filepath"
	"testing"
	"transit-tracking-service/internal/config"
	"transit-tracking-service/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreLifecycle(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageSQLite, DBPath: filepath.Join(t.TempDir(), "tracker.db")}

	store, err := OpenStore(cfg)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Migrate())
	require.NoError(t, store.Migrate())
	require.NoError(t, store.Seed(context.Background(), filepath.Join("..", "..", "data", "seeds", "fleet.json")))

	vehicles, err := store.Registry.ListVehicles(context.Background(), ports.VehicleFilter{})
	require.NoError(t, err)
	assert.NotEmpty(t, vehicles)

	assert.Error(t, store.Rollback())
}

func TestOpenStoreRejectsUnknownBackend(t *testing.T) {
	_, err := OpenStore(&config.Config{Storage: "mysql"})
	assert.Error(t, err)
}
