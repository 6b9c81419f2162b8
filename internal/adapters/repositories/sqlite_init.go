package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Initialize the SQLite database schema.
// The constraints mirror the Postgres migrations: partial unique indexes keep one
// active shift per driver and per vehicle, and the composite foreign key ties each
// sample's vehicle to its shift's vehicle.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createRoutesQuery := `
	CREATE TABLE IF NOT EXISTS routes (
		id INTEGER PRIMARY KEY,
		number TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		route_type TEXT NOT NULL
			CHECK (route_type IN ('bus', 'trolleybus', 'electric_bus', 'minibus')),
		start_point TEXT NOT NULL DEFAULT '',
		end_point TEXT NOT NULL DEFAULT '',
		start_lat REAL NOT NULL,
		start_lng REAL NOT NULL,
		end_lat REAL NOT NULL,
		end_lng REAL NOT NULL,
		path TEXT NOT NULL,
		working_hours TEXT,
		active INTEGER NOT NULL DEFAULT 1
	);
	`

	createVehiclesQuery := `
	CREATE TABLE IF NOT EXISTS vehicles (
		id INTEGER PRIMARY KEY,
		registration_number TEXT NOT NULL UNIQUE
			CHECK (length(registration_number) >= 3),
		vehicle_type TEXT NOT NULL
			CHECK (vehicle_type IN ('bus', 'trolleybus', 'electric_bus', 'minibus')),
		model TEXT,
		capacity INTEGER CHECK (capacity IS NULL OR capacity > 0),
		route_id INTEGER REFERENCES routes(id) ON DELETE SET NULL,
		assigned_driver_id INTEGER,
		active INTEGER NOT NULL DEFAULT 1
	);
	`

	createShiftsQuery := `
	CREATE TABLE IF NOT EXISTS shifts (
		id INTEGER PRIMARY KEY,
		driver_id INTEGER NOT NULL,
		vehicle_id INTEGER NOT NULL REFERENCES vehicles(id) ON DELETE RESTRICT,
		started_at INTEGER NOT NULL,
		ended_at INTEGER,
		status TEXT NOT NULL CHECK (status IN ('active', 'completed')),
		UNIQUE (id, vehicle_id),
		CHECK (
			(status = 'active' AND ended_at IS NULL) OR
			(status = 'completed' AND ended_at IS NOT NULL AND ended_at >= started_at)
		)
	);
	`

	createLocationSamplesQuery := `
	CREATE TABLE IF NOT EXISTS location_samples (
		id INTEGER PRIMARY KEY,
		vehicle_id INTEGER NOT NULL,
		shift_id INTEGER NOT NULL,
		latitude REAL NOT NULL CHECK (latitude BETWEEN -90 AND 90),
		longitude REAL NOT NULL CHECK (longitude BETWEEN -180 AND 180),
		speed REAL CHECK (speed IS NULL OR speed >= 0),
		heading REAL CHECK (heading IS NULL OR heading BETWEEN 0 AND 360),
		accuracy REAL CHECK (accuracy IS NULL OR accuracy >= 0),
		recorded_at INTEGER NOT NULL,
		FOREIGN KEY (shift_id, vehicle_id) REFERENCES shifts(id, vehicle_id) ON DELETE CASCADE
	);
	`

	statements := []string{
		createRoutesQuery,
		createVehiclesQuery,
		createShiftsQuery,
		createLocationSamplesQuery,
		`CREATE UNIQUE INDEX IF NOT EXISTS shifts_one_active_per_driver ON shifts(driver_id) WHERE status = 'active';`,
		`CREATE UNIQUE INDEX IF NOT EXISTS shifts_one_active_per_vehicle ON shifts(vehicle_id) WHERE status = 'active';`,
		`CREATE INDEX IF NOT EXISTS shifts_driver_status_idx ON shifts(driver_id, status);`,
		`CREATE INDEX IF NOT EXISTS shifts_vehicle_status_idx ON shifts(vehicle_id, status);`,
		`CREATE INDEX IF NOT EXISTS shifts_started_at_idx ON shifts(started_at DESC);`,
		`CREATE INDEX IF NOT EXISTS vehicles_route_idx ON vehicles(route_id);`,
		`CREATE INDEX IF NOT EXISTS location_samples_shift_ts_idx ON location_samples(shift_id, recorded_at DESC);`,
		`CREATE INDEX IF NOT EXISTS location_samples_vehicle_ts_idx ON location_samples(vehicle_id, recorded_at DESC);`,
		`CREATE INDEX IF NOT EXISTS location_samples_ts_idx ON location_samples(recorded_at);`,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// Populate the routes and vehicles tables from a JSON file.
// Existing rows with the same id are replaced.
func SeedFromJSON(db *sql.DB, jsonPath string) error {
	routes, vehicles, err := loadFleetSeed(jsonPath)
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed fleet: begin tx: %w", err)
	}
	defer tx.Rollback()

	routeStmt, err := tx.Prepare(`
	INSERT INTO routes (
		id, number, name, route_type, start_point, end_point,
		start_lat, start_lng, end_lat, end_lng, path, working_hours, active
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		number = excluded.number,
		name = excluded.name,
		route_type = excluded.route_type,
		start_point = excluded.start_point,
		end_point = excluded.end_point,
		start_lat = excluded.start_lat,
		start_lng = excluded.start_lng,
		end_lat = excluded.end_lat,
		end_lng = excluded.end_lng,
		path = excluded.path,
		working_hours = excluded.working_hours,
		active = excluded.active;
	`)
	if err != nil {
		return fmt.Errorf("seed fleet: prepare route insert: %w", err)
	}
	defer routeStmt.Close()

	for _, r := range routes {
		path, err := json.Marshal(r.Path)
		if err != nil {
			return fmt.Errorf("seed fleet: encode path route_id=%d: %w", r.ID, err)
		}
		if _, err := routeStmt.Exec(
			r.ID, r.Number, r.Name, string(r.Type), r.StartPoint, r.EndPoint,
			r.StartCoordinates.Lat, r.StartCoordinates.Lng, r.EndCoordinates.Lat, r.EndCoordinates.Lng,
			string(path), nullString(r.WorkingHours), r.Active,
		); err != nil {
			return fmt.Errorf("seed fleet: insert route_id=%d: %w", r.ID, err)
		}
	}

	vehicleStmt, err := tx.Prepare(`
	INSERT INTO vehicles (
		id, registration_number, vehicle_type, model, capacity, route_id, assigned_driver_id, active
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		registration_number = excluded.registration_number,
		vehicle_type = excluded.vehicle_type,
		model = excluded.model,
		capacity = excluded.capacity,
		route_id = excluded.route_id,
		assigned_driver_id = excluded.assigned_driver_id,
		active = excluded.active;
	`)
	if err != nil {
		return fmt.Errorf("seed fleet: prepare vehicle insert: %w", err)
	}
	defer vehicleStmt.Close()

	for _, v := range vehicles {
		if _, err := vehicleStmt.Exec(
			v.ID, v.RegistrationNumber, string(v.Type), nullString(v.Model), nullInt(v.Capacity),
			nullInt64(v.RouteID), nullInt64(v.AssignedDriverID), v.Active,
		); err != nil {
			return fmt.Errorf("seed fleet: insert vehicle_id=%d: %w", v.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed fleet: commit tx: %w", err)
	}

	return nil
}
