package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"transit-tracking-service/internal/domain"
	"transit-tracking-service/internal/platform/obs"
	"transit-tracking-service/internal/ports"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// Postgres-backed implementation of the ShiftRepository port.
type PostgresShiftRepository struct{ DB *sql.DB }

func NewPostgresShiftRepository(db *sql.DB) *PostgresShiftRepository {
	return &PostgresShiftRepository{DB: db}
}

const pgShiftColumns = `id, driver_id, vehicle_id, started_at, ended_at, status`

func scanPgShift(row rowScanner) (*domain.Shift, error) {
	var (
		s      domain.Shift
		ended  sql.NullTime
		status string
	)
	if err := row.Scan(&s.ID, &s.DriverID, &s.VehicleID, &s.StartedAt, &ended, &status); err != nil {
		return nil, err
	}
	s.StartedAt = s.StartedAt.UTC()
	if ended.Valid {
		t := ended.Time.UTC()
		s.EndedAt = &t
	}
	s.Status = domain.ShiftStatus(status)
	return &s, nil
}

// StartShift runs the vehicle check, both active-shift checks and the insert in one
// transaction. The vehicle row is share-locked so it cannot be deactivated mid-start;
// concurrent starts that slip past the checks are stopped by the partial unique indexes.
func (s *PostgresShiftRepository) StartShift(
	ctx context.Context,
	driverID, vehicleID int64,
	at time.Time,
) (_ *domain.Shift, err error) {
	defer obs.Time(ctx, "postgres.shifts.StartShift")(&err)

	if s.DB == nil {
		return nil, errors.New("postgres shift repository: DB is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("start shift: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var active bool
	err = tx.QueryRowContext(ctx, `SELECT active FROM vehicles WHERE id = $1 FOR SHARE;`, vehicleID).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "vehicle", ID: vehicleID}
	}
	if err != nil {
		return nil, fmt.Errorf("start shift: read vehicle %d: %w", vehicleID, err)
	}
	if !active {
		return nil, &domain.PreconditionError{
			Reason: domain.ReasonVehicleUnavailable,
			Detail: fmt.Sprintf("vehicle %d is not active", vehicleID),
		}
	}

	var driverBusy, vehicleBusy bool
	err = tx.QueryRowContext(ctx, `
	SELECT
		EXISTS (SELECT 1 FROM shifts WHERE driver_id = $1 AND status = 'active'),
		EXISTS (SELECT 1 FROM shifts WHERE vehicle_id = $2 AND status = 'active');
	`, driverID, vehicleID).Scan(&driverBusy, &vehicleBusy)
	if err != nil {
		return nil, fmt.Errorf("start shift: check active shifts: %w", err)
	}
	if driverBusy {
		return nil, driverOnShift(driverID)
	}
	if vehicleBusy {
		return nil, vehicleOnShift(vehicleID)
	}

	row := tx.QueryRowContext(ctx, `
	INSERT INTO shifts (driver_id, vehicle_id, started_at, status)
	VALUES ($1, $2, $3, 'active')
	RETURNING `+pgShiftColumns+`;
	`, driverID, vehicleID, at.UTC())
	shift, err := scanPgShift(row)
	if err != nil {
		if perr := translatePgShiftConflict(err, driverID, vehicleID); perr != nil {
			return nil, perr
		}
		return nil, fmt.Errorf("start shift: insert shift: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if perr := translatePgShiftConflict(err, driverID, vehicleID); perr != nil {
			return nil, perr
		}
		return nil, fmt.Errorf("start shift: commit tx: %w", err)
	}

	return shift, nil
}

func (s *PostgresShiftRepository) CompleteShift(ctx context.Context, shiftID int64, at time.Time) (_ *domain.Shift, err error) {
	defer obs.Time(ctx, "postgres.shifts.CompleteShift")(&err)

	if s.DB == nil {
		return nil, errors.New("postgres shift repository: DB is nil")
	}

	row := s.DB.QueryRowContext(ctx, `
	UPDATE shifts
	SET status = 'completed',
		ended_at = GREATEST($1::timestamptz, started_at)
	WHERE id = $2 AND status = 'active'
	RETURNING `+pgShiftColumns+`;
	`, at.UTC(), shiftID)
	shift, err := scanPgShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.transitionError(ctx, shiftID, "complete")
	}
	if err != nil {
		return nil, fmt.Errorf("complete shift %d: %w", shiftID, err)
	}

	return shift, nil
}

func (s *PostgresShiftRepository) DeleteShift(ctx context.Context, shiftID int64) (err error) {
	defer obs.Time(ctx, "postgres.shifts.DeleteShift")(&err)

	if s.DB == nil {
		return errors.New("postgres shift repository: DB is nil")
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM shifts WHERE id = $1 AND status = 'completed';`, shiftID)
	if err != nil {
		return fmt.Errorf("delete shift %d: %w", shiftID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete shift %d: rows affected: %w", shiftID, err)
	}
	if n == 0 {
		return s.transitionError(ctx, shiftID, "delete")
	}

	return nil
}

func (s *PostgresShiftRepository) transitionError(ctx context.Context, shiftID int64, op string) error {
	cur, err := s.GetShift(ctx, shiftID)
	if err != nil {
		return err
	}
	return &domain.TransitionError{Op: op, From: cur.Status}
}

func (s *PostgresShiftRepository) GetShift(ctx context.Context, shiftID int64) (*domain.Shift, error) {
	if s.DB == nil {
		return nil, errors.New("postgres shift repository: DB is nil")
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+pgShiftColumns+` FROM shifts WHERE id = $1;`, shiftID)
	shift, err := scanPgShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "shift", ID: shiftID}
	}
	if err != nil {
		return nil, fmt.Errorf("get shift %d: %w", shiftID, err)
	}
	return shift, nil
}

func (s *PostgresShiftRepository) ActiveShiftForDriver(ctx context.Context, driverID int64) (*domain.Shift, error) {
	return s.activeShift(ctx, "driver_id", driverID)
}

func (s *PostgresShiftRepository) ActiveShiftForVehicle(ctx context.Context, vehicleID int64) (*domain.Shift, error) {
	return s.activeShift(ctx, "vehicle_id", vehicleID)
}

func (s *PostgresShiftRepository) activeShift(ctx context.Context, column string, id int64) (*domain.Shift, error) {
	if s.DB == nil {
		return nil, errors.New("postgres shift repository: DB is nil")
	}

	q := `SELECT ` + pgShiftColumns + ` FROM shifts WHERE ` + column + ` = $1 AND status = 'active';`
	shift, err := scanPgShift(s.DB.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active shift by %s=%d: %w", column, id, err)
	}
	return shift, nil
}

func (s *PostgresShiftRepository) CountActive(ctx context.Context) (int, error) {
	if s.DB == nil {
		return 0, errors.New("postgres shift repository: DB is nil")
	}

	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM shifts WHERE status = 'active';`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count active shifts: %w", err)
	}
	return n, nil
}

func (s *PostgresShiftRepository) ListShifts(ctx context.Context, f ports.ShiftFilter) ([]*domain.Shift, error) {
	if s.DB == nil {
		return nil, errors.New("postgres shift repository: DB is nil")
	}

	conds := []string{"TRUE"}
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.DriverID > 0 {
		add("driver_id = $%d", f.DriverID)
	}
	if f.VehicleID > 0 {
		add("vehicle_id = $%d", f.VehicleID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if !f.Since.IsZero() {
		add("started_at >= $%d", f.Since.UTC())
	}

	q := `SELECT ` + pgShiftColumns + ` FROM shifts WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY started_at DESC, id DESC;`
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list shifts: query shifts table: %w", err)
	}
	defer rows.Close()

	shifts := make([]*domain.Shift, 0, 32)
	for rows.Next() {
		shift, err := scanPgShift(rows)
		if err != nil {
			return nil, fmt.Errorf("list shifts: scan row: %w", err)
		}
		shifts = append(shifts, shift)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list shifts: row iteration: %w", err)
	}

	return shifts, nil
}

func (s *PostgresShiftRepository) Stats(ctx context.Context, since time.Time) (domain.ShiftStats, error) {
	if s.DB == nil {
		return domain.ShiftStats{}, errors.New("postgres shift repository: DB is nil")
	}

	var (
		st         domain.ShiftStats
		avgSeconds float64
	)
	err := s.DB.QueryRowContext(ctx, `
	SELECT
		COUNT(*) FILTER (WHERE started_at >= $1),
		(SELECT COUNT(*) FROM shifts WHERE status = 'active'),
		COUNT(*) FILTER (WHERE status = 'completed' AND started_at >= $1),
		COALESCE(AVG(EXTRACT(EPOCH FROM ended_at - started_at))
			FILTER (WHERE status = 'completed' AND started_at >= $1), 0)::float8
	FROM shifts;
	`, since.UTC()).Scan(&st.TotalShifts, &st.ActiveShifts, &st.CompletedShifts, &avgSeconds)
	if err != nil {
		return domain.ShiftStats{}, fmt.Errorf("shift stats: %w", err)
	}
	st.AverageDurationHours = avgSeconds / 3600

	return st, nil
}

// Map a unique-index violation on shifts to the precondition it protects.
// Returns nil when err is not such a violation.
func translatePgShiftConflict(err error, driverID, vehicleID int64) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return nil
	}
	switch pgErr.ConstraintName {
	case "shifts_one_active_per_driver":
		return driverOnShift(driverID)
	case "shifts_one_active_per_vehicle":
		return vehicleOnShift(vehicleID)
	}
	return nil
}
