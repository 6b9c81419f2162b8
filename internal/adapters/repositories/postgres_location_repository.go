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

// Postgres-backed implementation of the LocationRepository port.
type PostgresLocationRepository struct{ DB *sql.DB }

func NewPostgresLocationRepository(db *sql.DB) *PostgresLocationRepository {
	return &PostgresLocationRepository{DB: db}
}

const pgSampleColumns = `id, vehicle_id, shift_id, latitude, longitude, speed, heading, accuracy, recorded_at`

func scanPgSample(row rowScanner) (domain.LocationSample, error) {
	var (
		l                        domain.LocationSample
		speed, heading, accuracy sql.NullFloat64
	)
	err := row.Scan(&l.ID, &l.VehicleID, &l.ShiftID, &l.Latitude, &l.Longitude, &speed, &heading, &accuracy, &l.RecordedAt)
	if err != nil {
		return domain.LocationSample{}, err
	}
	l.Speed = floatPtr(speed)
	l.Heading = floatPtr(heading)
	l.Accuracy = floatPtr(accuracy)
	l.RecordedAt = l.RecordedAt.UTC()
	return l, nil
}

// AppendForDriver resolves the driver's active shift and inserts in one statement.
// Only the shift row is read; no lock is taken, so reports for different shifts never wait on each other.
func (s *PostgresLocationRepository) AppendForDriver(
	ctx context.Context,
	driverID int64,
	r domain.LocationReport,
	at time.Time,
) (_ *domain.LocationSample, err error) {
	defer obs.Time(ctx, "postgres.locations.AppendForDriver")(&err)

	if s.DB == nil {
		return nil, errors.New("postgres location repository: DB is nil")
	}

	row := s.DB.QueryRowContext(ctx, `
	INSERT INTO location_samples (
		vehicle_id, shift_id, latitude, longitude, speed, heading, accuracy, recorded_at
	)
	SELECT vehicle_id, id, $2, $3, $4, $5, $6, $7
	FROM shifts
	WHERE driver_id = $1 AND status = 'active'
	RETURNING `+pgSampleColumns+`;
	`,
		driverID,
		r.Latitude, r.Longitude, nullFloat(r.Speed), nullFloat(r.Heading), nullFloat(r.Accuracy), at.UTC(),
	)
	sample, err := scanPgSample(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoActiveShift
	}
	if err != nil {
		return nil, fmt.Errorf("append location driver_id=%d: %w", driverID, err)
	}

	return &sample, nil
}

func (s *PostgresLocationRepository) VehicleHistory(
	ctx context.Context,
	vehicleID int64,
	since time.Time,
	limit int,
) (_ []domain.LocationSample, err error) {
	defer obs.Time(ctx, "postgres.locations.VehicleHistory")(&err)

	return s.querySamples(ctx, "vehicle history", `
	SELECT `+pgSampleColumns+`
	FROM location_samples
	WHERE vehicle_id = $1 AND recorded_at >= $2
	ORDER BY recorded_at DESC, id DESC
	LIMIT $3;
	`, vehicleID, since.UTC(), limit)
}

func (s *PostgresLocationRepository) ShiftTrack(
	ctx context.Context,
	shiftID int64,
	limit int,
) (_ []domain.LocationSample, err error) {
	defer obs.Time(ctx, "postgres.locations.ShiftTrack")(&err)

	return s.querySamples(ctx, "shift track", `
	SELECT `+pgSampleColumns+`
	FROM location_samples
	WHERE shift_id = $1
	ORDER BY recorded_at ASC, id ASC
	LIMIT $2;
	`, shiftID, limit)
}

func (s *PostgresLocationRepository) querySamples(ctx context.Context, op, q string, args ...any) ([]domain.LocationSample, error) {
	if s.DB == nil {
		return nil, errors.New("postgres location repository: DB is nil")
	}

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query location_samples table: %w", op, err)
	}
	defer rows.Close()

	out := make([]domain.LocationSample, 0, 64)
	for rows.Next() {
		sample, err := scanPgSample(rows)
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

// Latest joins every matching active shift to its newest sample with a LATERAL
// subquery; each probe is one index seek on (shift_id, recorded_at DESC).
func (s *PostgresLocationRepository) Latest(ctx context.Context, f ports.LatestFilter) (_ []domain.LatestPosition, err error) {
	defer obs.Time(ctx, "postgres.locations.Latest")(&err)

	if s.DB == nil {
		return nil, errors.New("postgres location repository: DB is nil")
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT
		s.id, v.id, v.registration_number, v.vehicle_type, v.route_id, r.number,
		l.latitude, l.longitude, l.speed, l.heading, l.accuracy, l.recorded_at
	FROM shifts s
	JOIN vehicles v ON v.id = s.vehicle_id
	LEFT JOIN routes r ON r.id = v.route_id
	JOIN LATERAL (
		SELECT ls.latitude, ls.longitude, ls.speed, ls.heading, ls.accuracy, ls.recorded_at
		FROM location_samples ls
		WHERE ls.shift_id = s.id
		ORDER BY ls.recorded_at DESC, ls.id DESC
		LIMIT 1
	) l ON TRUE
	WHERE s.status = 'active'
		AND ($1::bigint = 0 OR v.route_id = $1)
		AND ($2::text = '' OR v.vehicle_type = $2)
		AND ($3::bigint = 0 OR v.id = $3);
	`, f.RouteID, string(f.VehicleType), f.VehicleID)
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
		)
		if err := rows.Scan(
			&p.ShiftID, &p.VehicleID, &p.RegistrationNumber, &vtype, &routeID, &routeNumber,
			&p.Latitude, &p.Longitude, &speed, &heading, &accuracy, &p.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("latest positions: scan row: %w", err)
		}
		p.VehicleType = domain.VehicleType(vtype)
		p.RouteID = int64Ptr(routeID)
		p.RouteNumber = stringPtr(routeNumber)
		p.Speed = floatPtr(speed)
		p.Heading = floatPtr(heading)
		p.Accuracy = floatPtr(accuracy)
		p.RecordedAt = p.RecordedAt.UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("latest positions: row iteration: %w", err)
	}

	return out, nil
}

// DeleteOlderThan removes samples in bounded batches. Each batch is its own short
// statement taking only row locks, so ingestion keeps running alongside it.
func (s *PostgresLocationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (_ int64, err error) {
	defer obs.Time(ctx, "postgres.locations.DeleteOlderThan")(&err)

	if s.DB == nil {
		return 0, errors.New("postgres location repository: DB is nil")
	}

	var total int64
	for {
		res, err := s.DB.ExecContext(ctx, `
		DELETE FROM location_samples
		WHERE id IN (
			SELECT id FROM location_samples
			WHERE recorded_at < $1
			LIMIT $2
		);
		`, cutoff.UTC(), cleanupBatchSize)
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
