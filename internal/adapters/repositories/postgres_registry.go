package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"transit-tracking-service/internal/domain"
	"transit-tracking-service/internal/ports"
)

// Postgres-backed read-only access to vehicles and routes.
type PostgresRegistry struct{ DB *sql.DB }

func NewPostgresRegistry(db *sql.DB) *PostgresRegistry {
	return &PostgresRegistry{DB: db}
}

func (s *PostgresRegistry) GetVehicle(ctx context.Context, id int64) (*domain.Vehicle, error) {
	if s.DB == nil {
		return nil, errors.New("postgres registry: DB is nil")
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles v WHERE v.id = $1;`, id)
	v, err := scanVehicle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "vehicle", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get vehicle %d: %w", id, err)
	}
	return v, nil
}

func (s *PostgresRegistry) ListVehicles(ctx context.Context, f ports.VehicleFilter) ([]*domain.Vehicle, error) {
	if s.DB == nil {
		return nil, errors.New("postgres registry: DB is nil")
	}

	conds := []string{"TRUE"}
	args := []any{}
	if f.Type != "" {
		args = append(args, string(f.Type))
		conds = append(conds, fmt.Sprintf("v.vehicle_type = $%d", len(args)))
	}
	if f.RouteID > 0 {
		args = append(args, f.RouteID)
		conds = append(conds, fmt.Sprintf("v.route_id = $%d", len(args)))
	}
	if f.ActiveOnly {
		conds = append(conds, "v.active")
	}
	if f.OnShift != nil {
		exists := "EXISTS (SELECT 1 FROM shifts s WHERE s.vehicle_id = v.id AND s.status = 'active')"
		if *f.OnShift {
			conds = append(conds, exists)
		} else {
			conds = append(conds, "NOT "+exists)
		}
	}

	q := `SELECT ` + vehicleColumns + ` FROM vehicles v WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY v.registration_number;`
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: query vehicles table: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Vehicle, 0, 32)
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("list vehicles: scan row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list vehicles: row iteration: %w", err)
	}

	return out, nil
}

func (s *PostgresRegistry) GetRoute(ctx context.Context, id int64) (*domain.Route, error) {
	if s.DB == nil {
		return nil, errors.New("postgres registry: DB is nil")
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+routeColumns+` FROM routes WHERE id = $1;`, id)
	r, err := scanRoute(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "route", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get route %d: %w", id, err)
	}
	return r, nil
}

func (s *PostgresRegistry) ListRoutes(ctx context.Context, activeOnly bool) ([]*domain.Route, error) {
	if s.DB == nil {
		return nil, errors.New("postgres registry: DB is nil")
	}

	q := `SELECT ` + routeColumns + ` FROM routes`
	if activeOnly {
		q += ` WHERE active`
	}
	q += ` ORDER BY number;`

	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list routes: query routes table: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Route, 0, 16)
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("list routes: scan row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list routes: row iteration: %w", err)
	}

	return out, nil
}

func (s *PostgresRegistry) ActiveVehicleCount(ctx context.Context, routeID int64) (int, error) {
	if s.DB == nil {
		return 0, errors.New("postgres registry: DB is nil")
	}

	var n int
	err := s.DB.QueryRowContext(ctx, `
	SELECT COUNT(*)
	FROM shifts s
	JOIN vehicles v ON v.id = s.vehicle_id
	WHERE s.status = 'active' AND v.route_id = $1;
	`, routeID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("active vehicle count route_id=%d: %w", routeID, err)
	}
	return n, nil
}

// Populate routes and vehicles from a JSON file, replacing rows with the same id,
// then move the id sequences past the seeded ids.
func SeedPostgresFromJSON(ctx context.Context, db *sql.DB, jsonPath string) error {
	routes, vehicles, err := loadFleetSeed(jsonPath)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed fleet: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	routeStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO routes (
		id, number, name, route_type, start_point, end_point,
		start_lat, start_lng, end_lat, end_lng, path, working_hours, active
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, $12, $13)
	ON CONFLICT (id) DO UPDATE SET
		number = EXCLUDED.number,
		name = EXCLUDED.name,
		route_type = EXCLUDED.route_type,
		start_point = EXCLUDED.start_point,
		end_point = EXCLUDED.end_point,
		start_lat = EXCLUDED.start_lat,
		start_lng = EXCLUDED.start_lng,
		end_lat = EXCLUDED.end_lat,
		end_lng = EXCLUDED.end_lng,
		path = EXCLUDED.path,
		working_hours = EXCLUDED.working_hours,
		active = EXCLUDED.active;
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
		if _, err := routeStmt.ExecContext(ctx,
			r.ID, r.Number, r.Name, string(r.Type), r.StartPoint, r.EndPoint,
			r.StartCoordinates.Lat, r.StartCoordinates.Lng, r.EndCoordinates.Lat, r.EndCoordinates.Lng,
			string(path), nullString(r.WorkingHours), r.Active,
		); err != nil {
			return fmt.Errorf("seed fleet: insert route_id=%d: %w", r.ID, err)
		}
	}

	vehicleStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO vehicles (
		id, registration_number, vehicle_type, model, capacity, route_id, assigned_driver_id, active
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE SET
		registration_number = EXCLUDED.registration_number,
		vehicle_type = EXCLUDED.vehicle_type,
		model = EXCLUDED.model,
		capacity = EXCLUDED.capacity,
		route_id = EXCLUDED.route_id,
		assigned_driver_id = EXCLUDED.assigned_driver_id,
		active = EXCLUDED.active;
	`)
	if err != nil {
		return fmt.Errorf("seed fleet: prepare vehicle insert: %w", err)
	}
	defer vehicleStmt.Close()

	for _, v := range vehicles {
		if _, err := vehicleStmt.ExecContext(ctx,
			v.ID, v.RegistrationNumber, string(v.Type), nullString(v.Model), nullInt(v.Capacity),
			nullInt64(v.RouteID), nullInt64(v.AssignedDriverID), v.Active,
		); err != nil {
			return fmt.Errorf("seed fleet: insert vehicle_id=%d: %w", v.ID, err)
		}
	}

	for _, table := range []string{"routes", "vehicles"} {
		q := fmt.Sprintf(
			`SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 1));`,
			table, table,
		)
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("seed fleet: reset %s sequence: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed fleet: commit tx: %w", err)
	}

	return nil
}
