package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"
	"transit-tracking-service/internal/domain"
	"transit-tracking-service/internal/metrics"
	"transit-tracking-service/internal/ports"
)

const (
	DefaultHistoryDays = 30
	MaxHistoryDays     = 365
)

// HistoryFilter narrows the admin shift history. Zero IDs mean "any".
type HistoryFilter struct {
	Days      int
	DriverID  int64
	VehicleID int64
}

// ShiftService owns the shift lifecycle: start, complete, delete and the read views over it.
type ShiftService struct {
	Shifts   ports.ShiftRepository
	Registry ports.Registry
	// Optional. Invalidated whenever a shift stops being active.
	Cache   ports.LatestCache
	Metrics *metrics.Collector
	Now     func() time.Time
}

func NewShiftService(shifts ports.ShiftRepository, registry ports.Registry) *ShiftService {
	return &ShiftService{Shifts: shifts, Registry: registry, Now: time.Now}
}

func (s *ShiftService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Start opens a shift for the calling driver on vehicleID.
// The vehicle and both one-active-shift rules are checked atomically by the repository.
func (s *ShiftService) Start(ctx context.Context, id domain.Identity, vehicleID int64) (*domain.Shift, error) {
	if !id.Can(domain.RoleDriver) {
		s.Metrics.ShiftRejected(string(domain.ReasonDriverIneligible))
		detail := fmt.Sprintf("user %d is not an active driver", id.ID)
		if id.Blocked {
			detail = fmt.Sprintf("driver %d is blocked", id.ID)
		}
		return nil, &domain.PreconditionError{Reason: domain.ReasonDriverIneligible, Detail: detail}
	}
	if vehicleID <= 0 {
		var verr domain.ValidationError
		verr.Add("vehicle_id", "must be a positive integer")
		return nil, verr.OrNil()
	}

	shift, err := s.Shifts.StartShift(ctx, id.ID, vehicleID, s.now())
	if err != nil {
		var perr *domain.PreconditionError
		if errors.As(err, &perr) {
			s.Metrics.ShiftRejected(string(perr.Reason))
		}
		return nil, fmt.Errorf("start shift: %w", err)
	}

	s.Metrics.ShiftStarted()
	log.Printf("shift started shift_id=%d driver_id=%d vehicle_id=%d", shift.ID, shift.DriverID, shift.VehicleID)
	return shift, nil
}

// Complete closes the calling driver's own active shift.
func (s *ShiftService) Complete(ctx context.Context, id domain.Identity) (*domain.Shift, error) {
	if err := id.Require(domain.RoleDriver); err != nil {
		return nil, err
	}

	active, err := s.Shifts.ActiveShiftForDriver(ctx, id.ID)
	if err != nil {
		return nil, fmt.Errorf("complete shift: %w", err)
	}
	if active == nil {
		return nil, domain.ErrNoActiveShift
	}

	shift, err := s.complete(ctx, active.ID)
	// lost a race with another completion of the same shift
	if errors.Is(err, domain.ErrInvalidStateTransition) {
		return nil, domain.ErrNoActiveShift
	}
	return shift, err
}

// CompleteByID force-completes any shift. Admin only.
func (s *ShiftService) CompleteByID(ctx context.Context, id domain.Identity, shiftID int64) (*domain.Shift, error) {
	if err := id.Require(domain.RoleAdmin); err != nil {
		return nil, err
	}
	return s.complete(ctx, shiftID)
}

func (s *ShiftService) complete(ctx context.Context, shiftID int64) (*domain.Shift, error) {
	shift, err := s.Shifts.CompleteShift(ctx, shiftID, s.now())
	if err != nil {
		return nil, fmt.Errorf("complete shift %d: %w", shiftID, err)
	}

	s.invalidateLatest(ctx)
	s.Metrics.ShiftCompleted()
	log.Printf("shift completed shift_id=%d driver_id=%d vehicle_id=%d dur=%s",
		shift.ID, shift.DriverID, shift.VehicleID, shift.Duration(s.now()).Round(time.Second))
	return shift, nil
}

// Delete removes a completed shift together with its samples. Admin only.
func (s *ShiftService) Delete(ctx context.Context, id domain.Identity, shiftID int64) error {
	if err := id.Require(domain.RoleAdmin); err != nil {
		return err
	}
	if err := s.Shifts.DeleteShift(ctx, shiftID); err != nil {
		return fmt.Errorf("delete shift %d: %w", shiftID, err)
	}

	s.invalidateLatest(ctx)
	log.Printf("shift deleted shift_id=%d by_admin=%d", shiftID, id.ID)
	return nil
}

func (s *ShiftService) invalidateLatest(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx); err != nil {
		log.Printf("latest cache invalidate failed: %v", err)
	}
}

func (s *ShiftService) Get(ctx context.Context, shiftID int64) (*domain.Shift, error) {
	return s.Shifts.GetShift(ctx, shiftID)
}

// ActiveForDriver returns (nil, nil) when the driver is off shift.
func (s *ShiftService) ActiveForDriver(ctx context.Context, driverID int64) (*domain.Shift, error) {
	return s.Shifts.ActiveShiftForDriver(ctx, driverID)
}

// ActiveForVehicle returns (nil, nil) when the vehicle is free.
func (s *ShiftService) ActiveForVehicle(ctx context.Context, vehicleID int64) (*domain.Shift, error) {
	return s.Shifts.ActiveShiftForVehicle(ctx, vehicleID)
}

func (s *ShiftService) ListActive(ctx context.Context) ([]*domain.Shift, error) {
	return s.Shifts.ListShifts(ctx, ports.ShiftFilter{Status: domain.ShiftActive})
}

func (s *ShiftService) CountActive(ctx context.Context) (int, error) {
	return s.Shifts.CountActive(ctx)
}

// MyHistory lists the caller's completed shifts started within the last days.
func (s *ShiftService) MyHistory(ctx context.Context, id domain.Identity, days int) ([]*domain.Shift, error) {
	if err := id.Require(domain.RoleDriver); err != nil {
		return nil, err
	}
	return s.Shifts.ListShifts(ctx, ports.ShiftFilter{
		DriverID: id.ID,
		Status:   domain.ShiftCompleted,
		Since:    s.windowStart(days),
	})
}

// History lists completed shifts for admins. Active shifts are served by ListActive.
func (s *ShiftService) History(ctx context.Context, id domain.Identity, f HistoryFilter) ([]*domain.Shift, error) {
	if err := id.Require(domain.RoleAdmin); err != nil {
		return nil, err
	}
	return s.Shifts.ListShifts(ctx, ports.ShiftFilter{
		DriverID:  f.DriverID,
		VehicleID: f.VehicleID,
		Status:    domain.ShiftCompleted,
		Since:     s.windowStart(f.Days),
	})
}

func (s *ShiftService) Statistics(ctx context.Context, id domain.Identity, days int) (domain.ShiftStats, error) {
	if err := id.Require(domain.RoleAdmin); err != nil {
		return domain.ShiftStats{}, err
	}

	days = clampDays(days)
	st, err := s.Shifts.Stats(ctx, s.windowStart(days))
	if err != nil {
		return domain.ShiftStats{}, fmt.Errorf("shift statistics: %w", err)
	}
	st.PeriodDays = days
	st.AverageDurationHours = math.Round(st.AverageDurationHours*100) / 100
	return st, nil
}

func (s *ShiftService) windowStart(days int) time.Time {
	return s.now().AddDate(0, 0, -clampDays(days))
}

func clampDays(days int) int {
	switch {
	case days <= 0:
		return DefaultHistoryDays
	case days > MaxHistoryDays:
		return MaxHistoryDays
	}
	return days
}
