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

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLite-backed implementation of the ShiftRepository port.
type SqliteShiftRepository struct{ DB *sql.DB }

func NewSqliteShiftRepository(db *sql.DB) *SqliteShiftRepository {
	return &SqliteShiftRepository{DB: db}
}

const sqliteShiftColumns = `id, driver_id, vehicle_id, started_at, ended_at, status`

func scanSqliteShift(row rowScanner) (*domain.Shift, error) {
	var (
		s       domain.Shift
		started int64
		ended   sql.NullInt64
		status  string
	)
	if err := row.Scan(&s.ID, &s.DriverID, &s.VehicleID, &started, &ended, &status); err != nil {
		return nil, err
	}
	s.StartedAt = fromMicros(started)
	s.EndedAt = fromNullMicros(ended)
	s.Status = domain.ShiftStatus(status)
	return &s, nil
}

func (s *SqliteShiftRepository) StartShift(
	ctx context.Context,
	driverID, vehicleID int64,
	at time.Time,
) (_ *domain.Shift, err error) {
	defer obs.Time(ctx, "sqlite.shifts.StartShift")(&err)

	if s.DB == nil {
		return nil, errors.New("sqlite shift repository: DB is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("start shift: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var active bool
	err = tx.QueryRowContext(ctx, `SELECT active FROM vehicles WHERE id = ?;`, vehicleID).Scan(&active)
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
		EXISTS (SELECT 1 FROM shifts WHERE driver_id = ? AND status = 'active'),
		EXISTS (SELECT 1 FROM shifts WHERE vehicle_id = ? AND status = 'active');
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
	VALUES (?, ?, ?, 'active')
	RETURNING `+sqliteShiftColumns+`;
	`, driverID, vehicleID, toMicros(at))
	shift, err := scanSqliteShift(row)
	if err != nil {
		if perr := translateSqliteShiftConflict(err, driverID, vehicleID); perr != nil {
			return nil, perr
		}
		return nil, fmt.Errorf("start shift: insert shift: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if perr := translateSqliteShiftConflict(err, driverID, vehicleID); perr != nil {
			return nil, perr
		}
		return nil, fmt.Errorf("start shift: commit tx: %w", err)
	}

	return shift, nil
}

func (s *SqliteShiftRepository) CompleteShift(ctx context.Context, shiftID int64, at time.Time) (_ *domain.Shift, err error) {
	defer obs.Time(ctx, "sqlite.shifts.CompleteShift")(&err)

	if s.DB == nil {
		return nil, errors.New("sqlite shift repository: DB is nil")
	}

	row := s.DB.QueryRowContext(ctx, `
	UPDATE shifts
	SET status = 'completed',
		ended_at = MAX(?, started_at)
	WHERE id = ? AND status = 'active'
	RETURNING `+sqliteShiftColumns+`;
	`, toMicros(at), shiftID)
	shift, err := scanSqliteShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.transitionError(ctx, shiftID, "complete")
	}
	if err != nil {
		return nil, fmt.Errorf("complete shift %d: %w", shiftID, err)
	}

	return shift, nil
}

func (s *SqliteShiftRepository) DeleteShift(ctx context.Context, shiftID int64) (err error) {
	defer obs.Time(ctx, "sqlite.shifts.DeleteShift")(&err)

	if s.DB == nil {
		return errors.New("sqlite shift repository: DB is nil")
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM shifts WHERE id = ? AND status = 'completed';`, shiftID)
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

// Explain why a conditional update matched no row.
func (s *SqliteShiftRepository) transitionError(ctx context.Context, shiftID int64, op string) error {
	cur, err := s.GetShift(ctx, shiftID)
	if err != nil {
		return err
	}
	return &domain.TransitionError{Op: op, From: cur.Status}
}

func (s *SqliteShiftRepository) GetShift(ctx context.Context, shiftID int64) (*domain.Shift, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite shift repository: DB is nil")
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+sqliteShiftColumns+` FROM shifts WHERE id = ?;`, shiftID)
	shift, err := scanSqliteShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "shift", ID: shiftID}
	}
	if err != nil {
		return nil, fmt.Errorf("get shift %d: %w", shiftID, err)
	}
	return shift, nil
}

func (s *SqliteShiftRepository) ActiveShiftForDriver(ctx context.Context, driverID int64) (*domain.Shift, error) {
	return s.activeShift(ctx, "driver_id", driverID)
}

func (s *SqliteShiftRepository) ActiveShiftForVehicle(ctx context.Context, vehicleID int64) (*domain.Shift, error) {
	return s.activeShift(ctx, "vehicle_id", vehicleID)
}

// column is one of two fixed identifiers, never caller input.
func (s *SqliteShiftRepository) activeShift(ctx context.Context, column string, id int64) (*domain.Shift, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite shift repository: DB is nil")
	}

	q := `SELECT ` + sqliteShiftColumns + ` FROM shifts WHERE ` + column + ` = ? AND status = 'active';`
	shift, err := scanSqliteShift(s.DB.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active shift by %s=%d: %w", column, id, err)
	}
	return shift, nil
}

func (s *SqliteShiftRepository) CountActive(ctx context.Context) (int, error) {
	if s.DB == nil {
		return 0, errors.New("sqlite shift repository: DB is nil")
	}

	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM shifts WHERE status = 'active';`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count active shifts: %w", err)
	}
	return n, nil
}

func (s *SqliteShiftRepository) ListShifts(ctx context.Context, f ports.ShiftFilter) ([]*domain.Shift, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite shift repository: DB is nil")
	}

	conds := []string{"1 = 1"}
	args := []any{}
	if f.DriverID > 0 {
		conds = append(conds, "driver_id = ?")
		args = append(args, f.DriverID)
	}
	if f.VehicleID > 0 {
		conds = append(conds, "vehicle_id = ?")
		args = append(args, f.VehicleID)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if !f.Since.IsZero() {
		conds = append(conds, "started_at >= ?")
		args = append(args, toMicros(f.Since))
	}

	q := `SELECT ` + sqliteShiftColumns + ` FROM shifts WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY started_at DESC, id DESC;`
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list shifts: query shifts table: %w", err)
	}
	defer rows.Close()

	shifts := make([]*domain.Shift, 0, 32)
	for rows.Next() {
		shift, err := scanSqliteShift(rows)
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

func (s *SqliteShiftRepository) Stats(ctx context.Context, since time.Time) (domain.ShiftStats, error) {
	if s.DB == nil {
		return domain.ShiftStats{}, errors.New("sqlite shift repository: DB is nil")
	}

	from := toMicros(since)
	var (
		st        domain.ShiftStats
		avgMicros float64
	)
	err := s.DB.QueryRowContext(ctx, `
	SELECT
		(SELECT COUNT(*) FROM shifts WHERE started_at >= ?),
		(SELECT COUNT(*) FROM shifts WHERE status = 'active'),
		(SELECT COUNT(*) FROM shifts WHERE status = 'completed' AND started_at >= ?),
		(SELECT COALESCE(AVG(ended_at - started_at), 0.0) FROM shifts WHERE status = 'completed' AND started_at >= ?);
	`, from, from, from).Scan(&st.TotalShifts, &st.ActiveShifts, &st.CompletedShifts, &avgMicros)
	if err != nil {
		return domain.ShiftStats{}, fmt.Errorf("shift stats: %w", err)
	}
	st.AverageDurationHours = avgMicros / float64(time.Hour/time.Microsecond)

	return st, nil
}

// Map a unique-index violation on shifts to the precondition it protects.
// Returns nil when err is not such a violation.
func translateSqliteShiftConflict(err error, driverID, vehicleID int64) error {
	var se *sqlite.Error
	if !errors.As(err, &se) || se.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return nil
	}
	msg := se.Error()
	switch {
	case strings.Contains(msg, "shifts.driver_id"):
		return driverOnShift(driverID)
	case strings.Contains(msg, "shifts.vehicle_id"):
		return vehicleOnShift(vehicleID)
	}
	return nil
}

func driverOnShift(driverID int64) error {
	return &domain.PreconditionError{
		Reason: domain.ReasonDriverAlreadyOnShift,
		Detail: fmt.Sprintf("driver %d already has an active shift", driverID),
	}
}

func vehicleOnShift(vehicleID int64) error {
	return &domain.PreconditionError{
		Reason: domain.ReasonVehicleAlreadyOnShift,
		Detail: fmt.Sprintf("vehicle %d already has an active shift", vehicleID),
	}
}
