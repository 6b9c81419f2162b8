package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
	"transit-tracking-service/internal/domain"
	"transit-tracking-service/internal/metrics"
	"transit-tracking-service/internal/ports"
)

const (
	DefaultHistoryHours = 1
	MaxHistoryHours     = 168
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 1000

	DefaultTrackLimit   = 500
	DefaultMyTrackLimit = 200
	MaxTrackLimit       = 10000
)

// LocationService ingests driver position reports and serves the position views.
type LocationService struct {
	Locations ports.LocationRepository
	Shifts    ports.ShiftRepository
	Registry  ports.Registry
	// Optional collaborators; nil disables them.
	Cache     ports.LatestCache
	Publisher ports.LocationPublisher
	Metrics   *metrics.Collector
	Now       func() time.Time
}

func NewLocationService(
	locations ports.LocationRepository,
	shifts ports.ShiftRepository,
	registry ports.Registry,
) *LocationService {
	return &LocationService{Locations: locations, Shifts: shifts, Registry: registry, Now: time.Now}
}

func (s *LocationService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Report records a position for the calling driver's active shift.
// The sample is stamped with the server clock; shift and vehicle are resolved at insert time.
func (s *LocationService) Report(ctx context.Context, id domain.Identity, r domain.LocationReport) (*domain.LocationSample, error) {
	if err := id.Require(domain.RoleDriver); err != nil {
		s.Metrics.LocationRejected("forbidden")
		return nil, err
	}
	if err := r.Validate(); err != nil {
		s.Metrics.LocationRejected("validation_error")
		return nil, err
	}

	sample, err := s.Locations.AppendForDriver(ctx, id.ID, r, s.now())
	if errors.Is(err, domain.ErrNoActiveShift) {
		s.Metrics.LocationRejected("no_active_shift")
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("report location: %w", err)
	}

	s.Metrics.LocationAccepted()
	s.publish(ctx, sample)
	return sample, nil
}

// publish fans the committed sample out. Failures are logged and never fail the report.
func (s *LocationService) publish(ctx context.Context, sample *domain.LocationSample) {
	if s.Publisher == nil {
		return
	}

	pos := domain.LatestPosition{
		ShiftID:    sample.ShiftID,
		VehicleID:  sample.VehicleID,
		Latitude:   sample.Latitude,
		Longitude:  sample.Longitude,
		Speed:      sample.Speed,
		Heading:    sample.Heading,
		Accuracy:   sample.Accuracy,
		RecordedAt: sample.RecordedAt,
	}
	if v, err := s.Registry.GetVehicle(ctx, sample.VehicleID); err == nil {
		pos.RegistrationNumber = v.RegistrationNumber
		pos.VehicleType = v.Type
		pos.RouteID = v.RouteID
	} else {
		log.Printf("publish location: lookup vehicle_id=%d: %v", sample.VehicleID, err)
	}

	if err := s.Publisher.PublishLocation(ctx, pos); err != nil {
		log.Printf("publish location vehicle_id=%d: %v", sample.VehicleID, err)
	}
}

// History returns a vehicle's samples from the last hours, newest first.
func (s *LocationService) History(ctx context.Context, vehicleID int64, hours, limit int) ([]domain.LocationSample, error) {
	if _, err := s.Registry.GetVehicle(ctx, vehicleID); err != nil {
		return nil, err
	}

	hours = clamp(hours, DefaultHistoryHours, MaxHistoryHours)
	limit = clamp(limit, DefaultHistoryLimit, MaxHistoryLimit)
	since := s.now().Add(-time.Duration(hours) * time.Hour)

	return s.Locations.VehicleHistory(ctx, vehicleID, since, limit)
}

// Track returns a shift's samples, oldest first.
func (s *LocationService) Track(ctx context.Context, shiftID int64, limit int) ([]domain.LocationSample, error) {
	if _, err := s.Shifts.GetShift(ctx, shiftID); err != nil {
		return nil, err
	}
	return s.Locations.ShiftTrack(ctx, shiftID, clamp(limit, DefaultTrackLimit, MaxTrackLimit))
}

// CurrentTrack is a driver's active shift with its vehicle, route and samples.
type CurrentTrack struct {
	Shift   *domain.Shift
	Vehicle *domain.Vehicle
	// nil when the vehicle is not assigned to a route
	Route   *domain.Route
	Samples []domain.LocationSample
}

// MyTrack returns the calling driver's current shift track, oldest sample first.
func (s *LocationService) MyTrack(ctx context.Context, id domain.Identity, limit int) (*CurrentTrack, error) {
	if err := id.Require(domain.RoleDriver); err != nil {
		return nil, err
	}

	active, err := s.Shifts.ActiveShiftForDriver(ctx, id.ID)
	if err != nil {
		return nil, fmt.Errorf("my track: %w", err)
	}
	if active == nil {
		return nil, domain.ErrNoActiveShift
	}

	vehicle, err := s.Registry.GetVehicle(ctx, active.VehicleID)
	if err != nil {
		return nil, fmt.Errorf("my track: %w", err)
	}
	out := &CurrentTrack{Shift: active, Vehicle: vehicle}
	if vehicle.RouteID != nil {
		if out.Route, err = s.Registry.GetRoute(ctx, *vehicle.RouteID); err != nil {
			return nil, fmt.Errorf("my track: %w", err)
		}
	}

	out.Samples, err = s.Locations.ShiftTrack(ctx, active.ID, clamp(limit, DefaultMyTrackLimit, MaxTrackLimit))
	if err != nil {
		return nil, fmt.Errorf("my track: %w", err)
	}
	return out, nil
}

// Latest returns the newest position of every active shift matching f.
func (s *LocationService) Latest(ctx context.Context, f ports.LatestFilter) ([]domain.LatestPosition, error) {
	var (
		version   int64
		cacheable bool
	)
	if s.Cache != nil {
		items, v, ok, err := s.Cache.Get(ctx, f)
		version, cacheable = v, err == nil
		switch {
		case err != nil:
			log.Printf("latest cache get failed: %v", err)
		case ok:
			s.Metrics.CacheHit()
			return items, nil
		default:
			s.Metrics.CacheMiss()
		}
	}

	start := time.Now()
	items, err := s.Locations.Latest(ctx, f)
	s.Metrics.LatestObserve(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("latest positions: %w", err)
	}

	if cacheable {
		if err := s.Cache.Put(ctx, f, version, items); err != nil {
			log.Printf("latest cache put failed: %v", err)
		}
	}
	return items, nil
}

// CurrentLocation is nil unless the vehicle has an active shift with at least one sample.
func (s *LocationService) CurrentLocation(ctx context.Context, vehicleID int64) (*domain.LatestPosition, error) {
	items, err := s.Locations.Latest(ctx, ports.LatestFilter{VehicleID: vehicleID})
	if err != nil {
		return nil, fmt.Errorf("current location vehicle_id=%d: %w", vehicleID, err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func clamp(v, def, max int) int {
	if v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
