package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"transit-tracking-service/internal/domain"
	"transit-tracking-service/internal/platform/obs"
	"transit-tracking-service/internal/ports"
)

// Rows deleted per retention statement; keeps each write transaction short.
const cleanupBatchSize = 5000

// SQLite-backed implementation of the LocationRepository port.
type SqliteLocationRepository struct{ DB *sql.DB }

func NewSqliteLocationRepository(db *sql.DB) *SqliteLocationRepository {
	return &SqliteLocationRepository{DB: db}
}

const sqliteSampleColumns = `id, vehicle_id, shift_id, latitude, longitude, speed, heading, accuracy, recorded_at`

func scanSqliteSample(row rowScanner) (domain.LocationSample, error) {
	var (
		l                        domain.LocationSample
		speed, heading, accuracy sql.NullFloat64
		recorded                 int64
	)
	err := row.Scan(&l.ID, &l.VehicleID, &l.ShiftID, &l.Latitude, &l.Longitude, &speed, &heading, &accuracy, &recorded)
	if err != nil {
		return domain.LocationSample{}, err
	}
	l.Speed = floatPtr(speed)
	l.Heading = floatPtr(heading)
	l.Accuracy = floatPtr(accuracy)
	l.RecordedAt = fromMicros(recorded)
	return l, nil
}

// AppendForDriver resolves the driver's active shift and inserts in a single statement,
// so the shift and vehicle stamped on the row are the ones active at insert time.
func (s *SqliteLocationRepository) AppendForDriver(
	ctx context.Context,
	driverID int64,
	r domain.LocationReport,
	at time.Time,
) (_ *domain.LocationSample, err error) {
	defer obs.Time(ctx, "sqlite.locations.AppendForDriver")(&err)

	if s.DB == nil {
		return nil, errors.New("sqlite location repository: DB is nil")
	}

	row := s.DB.QueryRowContext(ctx, `
	INSERT INTO location_samples (
		vehicle_id, shift_id, latitude, longitude, speed, heading, accuracy, recorded_at
	)
	SELECT vehicle_id, id, ?, ?, ?, ?, ?, ?
	FROM shifts
	WHERE driver_id = ? AND status = 'active'
	RETURNING `+sqliteSampleColumns+`;
	`,
		r.Latitude, r.Longitude, nullFloat(r.Speed), nullFloat(r.Heading), nullFloat(r.Accuracy), toMicros(at),
		driverID,
	)
	sample, err := scanSqliteSample(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoActiveShift
	}
	if err != nil {
		return nil, fmt.Errorf("append location driver_id=%d: %w", driverID, err)
	}

	return &sample, nil
}

func (s *SqliteLocationRepository) VehicleHistory(
	ctx context.Context,
	vehicleID int64,
	since time.Time,
	limit int,
) (_ []domain.LocationSample, err error) {
	defer obs.Time(ctx, "sqlite.locations.VehicleHistory")(&err)

	return s.querySamples(ctx, "vehicle history", `
	SELECT `+sqliteSampleColumns+`
	FROM location_samples
	WHERE vehicle_id = ? AND recorded_at >= ?
	ORDER BY recorded_at DESC, id DESC
	LIMIT ?;
	`, vehicleID, toMicros(since), limit)
}

func (s *SqliteLocationRepository) ShiftTrack(
	ctx context.Context,
	shiftID int64,
	limit int,
) (_ []domain.LocationSample, err error) {
	defer obs.Time(ctx, "sqlite.locations.ShiftTrack")(&err)

	return s.querySamples(ctx, "shift track", `
	SELECT `+sqliteSampleColumns+`
	FROM location_samples
	WHERE shift_id = ?
	ORDER BY recorded_at ASC, id ASC
	LIMIT ?;
	`, shiftID, limit)
}

func (s *SqliteLocationRepository) querySamples(ctx context.Context, op, q string, args ...any) ([]domain.LocationSample, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite location repository: DB is nil")
	}

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query location_samples table: %w", op, err)
	}
	defer rows.Close()

	out := make([]domain.LocationSample, 0, 64)
	for rows.Next() {
		sample, err := scanSqliteSample(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		out = append(out, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: row iteration: %w", op, err)
	}

	return out, nil
}

// Latest picks the newest sample of every matching active shift with a correlated
// subquery served by the (shift_id, recorded_at DESC) index.
func (s *SqliteLocationRepository) Latest(ctx context.Context, f ports.LatestFilter) (_ []domain.LatestPosition, err error) {
	defer obs.Time(ctx, "sqlite.locations.Latest")(&err)

	if s.DB == nil {
		return nil, errors.New("sqlite location repository: DB is nil")
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT
		s.id, v.id, v.registration_number, v.vehicle_type, v.route_id, r.number,
		l.latitude, l.longitude, l.speed, l.heading, l.accuracy, l.recorded_at
	FROM shifts s
	JOIN vehicles v ON v.id = s.vehicle_id
	LEFT JOIN routes r ON r.id = v.route_id
	JOIN location_samples l ON l.id = (
		SELECT ls.id
		FROM location_samples ls
		WHERE ls.shift_id = s.id
		ORDER BY ls.recorded_at DESC, ls.id DESC
		LIMIT 1
	)
	WHERE s.status = 'active'
		AND (? = 0 OR v.route_id = ?)
		AND (? = '' OR v.vehicle_type = ?)
		AND (? = 0 OR v.id = ?);
	`,
		f.RouteID, f.RouteID,
		string(f.VehicleType), string(f.VehicleType),
		f.VehicleID, f.VehicleID,
	)
	if err != nil {
		return nil, fmt.Errorf("latest positions: query: %w", err)
	}
	defer rows.Close()

	out := make([]domain.LatestPosition, 0, 64)
	for rows.Next() {
		var (
			p                        domain.LatestPosition
			vtype                    string
			routeID                  sql.NullInt64
			routeNumber              sql.NullString
			speed, heading, accuracy sql.NullFloat64
			recorded                 int64
		)
		if err := rows.Scan(
			&p.ShiftID, &p.VehicleID, &p.RegistrationNumber, &vtype, &routeID, &routeNumber,
			&p.Latitude, &p.Longitude, &speed, &heading, &accuracy, &recorded,
		); err != nil {
			return nil, fmt.Errorf("latest positions: scan row: %w", err)
		}
		p.VehicleType = domain.VehicleType(vtype)
		p.RouteID = int64Ptr(routeID)
		p.RouteNumber = stringPtr(routeNumber)
		p.Speed = floatPtr(speed)
		p.Heading = floatPtr(heading)
		p.Accuracy = floatPtr(accuracy)
		p.RecordedAt = fromMicros(recorded)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("latest positions: row iteration: %w", err)
	}

	return out, nil
}

// DeleteOlderThan removes samples in bounded batches until none older than cutoff remain.
func (s *SqliteLocationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (_ int64, err error) {
	defer obs.Time(ctx, "sqlite.locations.DeleteOlderThan")(&err)

	if s.DB == nil {
		return 0, errors.New("sqlite location repository: DB is nil")
	}

	var total int64
	for {
		res, err := s.DB.ExecContext(ctx, `
		DELETE FROM location_samples
		WHERE id IN (
			SELECT id FROM location_samples
			WHERE recorded_at < ?
			LIMIT ?
		);
		`, toMicros(cutoff), cleanupBatchSize)
		if err != nil {
			return total, fmt.Errorf("delete old locations: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("delete old locations: rows affected: %w", err)
		}
		total += n
		if n < cleanupBatchSize {
			return total, nil
		}
	}
}
