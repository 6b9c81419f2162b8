package ports

import (
	"context"
	"time"
	"transit-tracking-service/internal/domain"
)

// Filter for shift listings. Zero values mean "any".
type ShiftFilter struct {
	DriverID  int64
	VehicleID int64
	Status    domain.ShiftStatus
	Since     time.Time
}

// Port: persistence of shifts. Implementations enforce the one-active-shift
// rules at the storage level and translate conflicts into *domain.PreconditionError.
type ShiftRepository interface {
	// Atomically check the vehicle and both active-shift rules and insert an active shift.
	StartShift(ctx context.Context, driverID, vehicleID int64, at time.Time) (*domain.Shift, error)
	// Move an active shift to completed. A non-active shift yields *domain.TransitionError.
	CompleteShift(ctx context.Context, shiftID int64, at time.Time) (*domain.Shift, error)
	// Remove a completed shift and its samples. An active shift yields *domain.TransitionError.
	DeleteShift(ctx context.Context, shiftID int64) error

	GetShift(ctx context.Context, shiftID int64) (*domain.Shift, error)
	// Return the active shift or (nil, nil) when there is none.
	ActiveShiftForDriver(ctx context.Context, driverID int64) (*domain.Shift, error)
	ActiveShiftForVehicle(ctx context.Context, vehicleID int64) (*domain.Shift, error)
	CountActive(ctx context.Context) (int, error)
	ListShifts(ctx context.Context, f ShiftFilter) ([]*domain.Shift, error)
	Stats(ctx context.Context, since time.Time) (domain.ShiftStats, error)
}
