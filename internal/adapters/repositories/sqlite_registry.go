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

// SQLite-backed read-only access to vehicles and routes.
type SqliteRegistry struct{ DB *sql.DB }

func NewSqliteRegistry(db *sql.DB) *SqliteRegistry {
	return &SqliteRegistry{DB: db}
}

const vehicleColumns = `v.id, v.registration_number, v.vehicle_type, v.model, v.capacity, v.route_id, v.assigned_driver_id, v.active`

func scanVehicle(row rowScanner) (*domain.Vehicle, error) {
	var (
		v                 domain.Vehicle
		vtype             string
		model             sql.NullString
		capacity          sql.NullInt64
		routeID, driverID sql.NullInt64
	)
	if err := row.Scan(&v.ID, &v.RegistrationNumber, &vtype, &model, &capacity, &routeID, &driverID, &v.Active); err != nil {
		return nil, err
	}
	v.Type = domain.VehicleType(vtype)
	v.Model = stringPtr(model)
	v.Capacity = intPtr(capacity)
	v.RouteID = int64Ptr(routeID)
	v.AssignedDriverID = int64Ptr(driverID)
	return &v, nil
}

const routeColumns = `id, number, name, route_type, start_point, end_point,
	start_lat, start_lng, end_lat, end_lng, path, working_hours, active`

func scanRoute(row rowScanner) (*domain.Route, error) {
	var (
		r     domain.Route
		rtype string
		path  []byte
		hours sql.NullString
	)
	if err := row.Scan(
		&r.ID, &r.Number, &r.Name, &rtype, &r.StartPoint, &r.EndPoint,
		&r.StartCoordinates.Lat, &r.StartCoordinates.Lng, &r.EndCoordinates.Lat, &r.EndCoordinates.Lng,
		&path, &hours, &r.Active,
	); err != nil {
		return nil, err
	}
	r.Type = domain.VehicleType(rtype)
	r.WorkingHours = stringPtr(hours)
	if err := json.Unmarshal(path, &r.Path); err != nil {
		return nil, fmt.Errorf("decode path of route %d: %w", r.ID, err)
	}
	return &r, nil
}

func (s *SqliteRegistry) GetVehicle(ctx context.Context, id int64) (*domain.Vehicle, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite registry: DB is nil")
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles v WHERE v.id = ?;`, id)
	v, err := scanVehicle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "vehicle", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get vehicle %d: %w", id, err)
	}
	return v, nil
}

func (s *SqliteRegistry) ListVehicles(ctx context.Context, f ports.VehicleFilter) ([]*domain.Vehicle, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite registry: DB is nil")
	}

	conds := []string{"1 = 1"}
	args := []any{}
	if f.Type != "" {
		conds = append(conds, "v.vehicle_type = ?")
		args = append(args, string(f.Type))
	}
	if f.RouteID > 0 {
		conds = append(conds, "v.route_id = ?")
		args = append(args, f.RouteID)
	}
	if f.ActiveOnly {
		conds = append(conds, "v.active = 1")
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

func (s *SqliteRegistry) GetRoute(ctx context.Context, id int64) (*domain.Route, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite registry: DB is nil")
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+routeColumns+` FROM routes WHERE id = ?;`, id)
	r, err := scanRoute(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "route", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get route %d: %w", id, err)
	}
	return r, nil
}

func (s *SqliteRegistry) ListRoutes(ctx context.Context, activeOnly bool) ([]*domain.Route, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite registry: DB is nil")
	}

	q := `SELECT ` + routeColumns + ` FROM routes`
	if activeOnly {
		q += ` WHERE active = 1`
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

func (s *SqliteRegistry) ActiveVehicleCount(ctx context.Context, routeID int64) (int, error) {
	if s.DB == nil {
		return 0, errors.New("sqlite registry: DB is nil")
	}

	var n int
	err := s.DB.QueryRowContext(ctx, `
	SELECT COUNT(*)
	FROM shifts s
	JOIN vehicles v ON v.id = s.vehicle_id
	WHERE s.status = 'active' AND v.route_id = ?;
	`, routeID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("active vehicle count route_id=%d: %w", routeID, err)
	}
	return n, nil
}
