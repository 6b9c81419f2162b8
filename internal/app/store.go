package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"transit-tracking-service/internal/adapters/repositories"
	"transit-tracking-service/internal/config"
	"transit-tracking-service/internal/platform/db"
	"transit-tracking-service/internal/ports"
)

// Store is the configured storage backend behind the three storage ports.
type Store struct {
	Kind      string
	DB        *sql.DB
	Shifts    ports.ShiftRepository
	Locations ports.LocationRepository
	Registry  ports.Registry

	databaseURL string
}

// OpenStore connects to the backend selected by cfg.Storage. It does not touch the schema.
func OpenStore(cfg *config.Config) (*Store, error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &Store{
			Kind:        cfg.Storage,
			DB:          conn,
			Shifts:      repositories.NewPostgresShiftRepository(conn),
			Locations:   repositories.NewPostgresLocationRepository(conn),
			Registry:    repositories.NewPostgresRegistry(conn),
			databaseURL: cfg.DatabaseURL,
		}, nil

	case config.StorageSQLite:
		conn, err := db.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return &Store{
			Kind:      cfg.Storage,
			DB:        conn,
			Shifts:    repositories.NewSqliteShiftRepository(conn),
			Locations: repositories.NewSqliteLocationRepository(conn),
			Registry:  repositories.NewSqliteRegistry(conn),
		}, nil
	}

	return nil, fmt.Errorf("open store: unsupported storage %q", cfg.Storage)
}

// Migrate brings the schema up to date: golang-migrate for Postgres, InitSchema for SQLite.
func (s *Store) Migrate() error {
	log.Println("Initializing database schema...")
	var err error
	if s.Kind == config.StoragePostgres {
		err = repositories.Migrate(s.databaseURL, "up")
	} else {
		err = repositories.InitSchema(s.DB)
	}
	if err != nil {
		return fmt.Errorf("migrate %s schema: %w", s.Kind, err)
	}
	log.Println("Schema ready.")
	return nil
}

// Rollback reverts every Postgres migration. SQLite has no down path.
func (s *Store) Rollback() error {
	if s.Kind != config.StoragePostgres {
		return fmt.Errorf("rollback: not supported for %s storage", s.Kind)
	}
	return repositories.Migrate(s.databaseURL, "down")
}

// Seed loads routes and vehicles from a JSON file. Existing ids are updated in place.
func (s *Store) Seed(ctx context.Context, seedPath string) error {
	log.Println("Seeding database...")
	var err error
	if s.Kind == config.StoragePostgres {
		err = repositories.SeedPostgresFromJSON(ctx, s.DB, seedPath)
	} else {
		err = repositories.SeedFromJSON(s.DB, seedPath)
	}
	if err != nil {
		return fmt.Errorf("seed %s: %w", seedPath, err)
	}
	log.Println("Seeding complete.")
	return nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}
