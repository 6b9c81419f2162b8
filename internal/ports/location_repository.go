package ports

import (
	"context"
	"time"
	"transit-tracking-service/internal/domain"
)

// Filter for the latest-position query. Zero values mean "any".
type LatestFilter struct {
	RouteID     int64
	VehicleType domain.VehicleType
	VehicleID   int64
}

// Port: append-only storage of location samples.
type LocationRepository interface {
	// Append a sample to the driver's active shift in one statement.
	// Returns domain.ErrNoActiveShift when the driver has no active shift.
	AppendForDriver(ctx context.Context, driverID int64, r domain.LocationReport, at time.Time) (*domain.LocationSample, error)
	// Samples for a vehicle recorded at or after since, newest first.
	VehicleHistory(ctx context.Context, vehicleID int64, since time.Time, limit int) ([]domain.LocationSample, error)
	// Samples for a shift, oldest first.
	ShiftTrack(ctx context.Context, shiftID int64, limit int) ([]domain.LocationSample, error)
	// Newest sample per active shift matching the filter, in one round trip.
	Latest(ctx context.Context, f LatestFilter) ([]domain.LatestPosition, error)
	// Delete samples recorded before cutoff and return how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
