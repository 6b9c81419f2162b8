package repositories

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"transit-tracking-service/internal/domain"
	"transit-tracking-service/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// store bundles one backend's implementations of the storage ports.
type store struct {
	shifts    ports.ShiftRepository
	locations ports.LocationRepository
	registry  ports.Registry
}

var base = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func fptr(v float64) *float64 { return &v }

func report(lat, lng float64) domain.LocationReport {
	return domain.LocationReport{Latitude: lat, Longitude: lng}
}

func requireReason(t *testing.T, err error, want domain.Reason) {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, domain.ErrPreconditionFailed), "want precondition failure, got %v", err)
	var perr *domain.PreconditionError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, want, perr.Reason)
}

func runStoreSuite(t *testing.T, newStore func(t *testing.T) store) {
	t.Run("StartShiftPreconditions", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		shift, err := s.shifts.StartShift(ctx, 101, 1, base)
		require.NoError(t, err)
		assert.Equal(t, domain.ShiftActive, shift.Status)
		assert.Nil(t, shift.EndedAt)
		assert.True(t, shift.StartedAt.Equal(base))

		_, err = s.shifts.StartShift(ctx, 101, 2, base)
		requireReason(t, err, domain.ReasonDriverAlreadyOnShift)

		_, err = s.shifts.StartShift(ctx, 102, 1, base)
		requireReason(t, err, domain.ReasonVehicleAlreadyOnShift)

		_, err = s.shifts.StartShift(ctx, 103, 3, base)
		requireReason(t, err, domain.ReasonVehicleUnavailable)

		_, err = s.shifts.StartShift(ctx, 103, 999, base)
		assert.True(t, errors.Is(err, domain.ErrNotFound))

		n, err := s.shifts.CountActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("ConcurrentStartSameDriver", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, vehicleID := range []int64{1, 2} {
			wg.Add(1)
			go func(i int, vehicleID int64) {
				defer wg.Done()
				_, errs[i] = s.shifts.StartShift(ctx, 201, vehicleID, base)
			}(i, vehicleID)
		}
		wg.Wait()

		succeeded, rejected := 0, 0
		for _, err := range errs {
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrPreconditionFailed):
				rejected++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 1, rejected)
	})

	t.Run("ConcurrentStartSameVehicle", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		const drivers = 8
		var wg sync.WaitGroup
		errs := make([]error, drivers)
		for i := 0; i < drivers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = s.shifts.StartShift(ctx, int64(300+i), 5, base)
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			requireReason(t, err, domain.ReasonVehicleAlreadyOnShift)
		}
		assert.Equal(t, 1, succeeded)

		active, err := s.shifts.ActiveShiftForVehicle(ctx, 5)
		require.NoError(t, err)
		require.NotNil(t, active)
	})

	t.Run("CompleteTwiceFails", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		shift, err := s.shifts.StartShift(ctx, 401, 1, base)
		require.NoError(t, err)

		done, err := s.shifts.CompleteShift(ctx, shift.ID, base.Add(8*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, domain.ShiftCompleted, done.Status)
		require.NotNil(t, done.EndedAt)
		assert.False(t, done.EndedAt.Before(done.StartedAt))

		_, err = s.shifts.CompleteShift(ctx, shift.ID, base.Add(9*time.Hour))
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidStateTransition))

		_, err = s.shifts.CompleteShift(ctx, 99999, base)
		assert.True(t, errors.Is(err, domain.ErrNotFound))

		active, err := s.shifts.ActiveShiftForDriver(ctx, 401)
		require.NoError(t, err)
		assert.Nil(t, active)

		// the vehicle is free again
		_, err = s.shifts.StartShift(ctx, 402, 1, base.Add(9*time.Hour))
		require.NoError(t, err)
	})

	t.Run("CompleteClampsSkewedClock", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		shift, err := s.shifts.StartShift(ctx, 451, 2, base)
		require.NoError(t, err)

		done, err := s.shifts.CompleteShift(ctx, shift.ID, base.Add(-time.Minute))
		require.NoError(t, err)
		assert.True(t, done.EndedAt.Equal(done.StartedAt))
	})

	t.Run("DeleteOnlyCompleted", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		shift, err := s.shifts.StartShift(ctx, 501, 1, base)
		require.NoError(t, err)
		_, err = s.locations.AppendForDriver(ctx, 501, report(42.87, 74.57), base.Add(time.Minute))
		require.NoError(t, err)

		err = s.shifts.DeleteShift(ctx, shift.ID)
		assert.True(t, errors.Is(err, domain.ErrInvalidStateTransition))

		_, err = s.shifts.CompleteShift(ctx, shift.ID, base.Add(time.Hour))
		require.NoError(t, err)
		require.NoError(t, s.shifts.DeleteShift(ctx, shift.ID))

		_, err = s.shifts.GetShift(ctx, shift.ID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))

		track, err := s.locations.ShiftTrack(ctx, shift.ID, 100)
		require.NoError(t, err)
		assert.Empty(t, track)

		err = s.shifts.DeleteShift(ctx, shift.ID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("AppendRequiresActiveShift", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.locations.AppendForDriver(ctx, 601, report(42.87, 74.57), base)
		assert.True(t, errors.Is(err, domain.ErrNoActiveShift))

		shift, err := s.shifts.StartShift(ctx, 601, 2, base)
		require.NoError(t, err)

		r := domain.LocationReport{Latitude: 42.8746, Longitude: 74.5698, Speed: fptr(45.5), Heading: fptr(180)}
		sample, err := s.locations.AppendForDriver(ctx, 601, r, base.Add(5*time.Second))
		require.NoError(t, err)
		assert.Equal(t, shift.ID, sample.ShiftID)
		assert.Equal(t, shift.VehicleID, sample.VehicleID)
		assert.Equal(t, 42.8746, sample.Latitude)
		require.NotNil(t, sample.Speed)
		assert.Equal(t, 45.5, *sample.Speed)
		assert.Nil(t, sample.Accuracy)
		assert.True(t, sample.RecordedAt.Equal(base.Add(5*time.Second)))

		_, err = s.shifts.CompleteShift(ctx, shift.ID, base.Add(time.Hour))
		require.NoError(t, err)

		_, err = s.locations.AppendForDriver(ctx, 601, r, base.Add(time.Hour+time.Second))
		assert.True(t, errors.Is(err, domain.ErrNoActiveShift))
	})

	t.Run("LatestOnePerActiveShift", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		// completed shift with samples: never listed
		old, err := s.shifts.StartShift(ctx, 700, 4, base)
		require.NoError(t, err)
		_, err = s.locations.AppendForDriver(ctx, 700, report(42.80, 74.50), base.Add(time.Minute))
		require.NoError(t, err)
		_, err = s.shifts.CompleteShift(ctx, old.ID, base.Add(time.Hour))
		require.NoError(t, err)

		busShift, err := s.shifts.StartShift(ctx, 701, 1, base)
		require.NoError(t, err)
		trolleyShift, err := s.shifts.StartShift(ctx, 702, 2, base)
		require.NoError(t, err)
		// active shift without samples: omitted
		_, err = s.shifts.StartShift(ctx, 703, 5, base)
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			at := base.Add(time.Duration(i*5) * time.Second)
			_, err = s.locations.AppendForDriver(ctx, 701, report(42.87+float64(i)*0.001, 74.57), at)
			require.NoError(t, err)
			_, err = s.locations.AppendForDriver(ctx, 702, report(42.88, 74.60+float64(i)*0.001), at)
			require.NoError(t, err)
		}

		all, err := s.locations.Latest(ctx, ports.LatestFilter{})
		require.NoError(t, err)
		require.Len(t, all, 2)

		byShift := map[int64]domain.LatestPosition{}
		for _, p := range all {
			byShift[p.ShiftID] = p
		}
		bus := byShift[busShift.ID]
		assert.InDelta(t, 42.874, bus.Latitude, 1e-9)
		assert.True(t, bus.RecordedAt.Equal(base.Add(20*time.Second)))
		assert.Equal(t, "B 1001 KG", bus.RegistrationNumber)
		assert.Equal(t, domain.VehicleBus, bus.VehicleType)
		require.NotNil(t, bus.RouteNumber)
		assert.Equal(t, "7", *bus.RouteNumber)

		trolley := byShift[trolleyShift.ID]
		assert.InDelta(t, 74.604, trolley.Longitude, 1e-9)

		byRoute, err := s.locations.Latest(ctx, ports.LatestFilter{RouteID: 2})
		require.NoError(t, err)
		require.Len(t, byRoute, 1)
		assert.Equal(t, int64(2), byRoute[0].VehicleID)

		byType, err := s.locations.Latest(ctx, ports.LatestFilter{VehicleType: domain.VehicleBus})
		require.NoError(t, err)
		require.Len(t, byType, 1)
		assert.Equal(t, int64(1), byType[0].VehicleID)

		byVehicle, err := s.locations.Latest(ctx, ports.LatestFilter{VehicleID: 4})
		require.NoError(t, err)
		assert.Empty(t, byVehicle)
	})

	t.Run("HistoryAndTrackOrdering", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		shift, err := s.shifts.StartShift(ctx, 801, 1, base)
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			_, err = s.locations.AppendForDriver(ctx, 801, report(42.87, 74.57+float64(i)*0.0001), base.Add(time.Duration(i)*time.Minute))
			require.NoError(t, err)
		}

		history, err := s.locations.VehicleHistory(ctx, 1, base.Add(5*time.Minute), 3)
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.True(t, history[0].RecordedAt.Equal(base.Add(9*time.Minute)))
		assert.True(t, history[2].RecordedAt.Equal(base.Add(7*time.Minute)))

		windowed, err := s.locations.VehicleHistory(ctx, 1, base.Add(5*time.Minute), 100)
		require.NoError(t, err)
		assert.Len(t, windowed, 5)

		track, err := s.locations.ShiftTrack(ctx, shift.ID, 4)
		require.NoError(t, err)
		require.Len(t, track, 4)
		for i := 1; i < len(track); i++ {
			assert.True(t, track[i-1].RecordedAt.Before(track[i].RecordedAt))
		}
		assert.True(t, track[0].RecordedAt.Equal(base))
	})

	t.Run("RetentionIsIdempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.shifts.StartShift(ctx, 901, 1, base)
		require.NoError(t, err)
		for i := 0; i < 6; i++ {
			_, err = s.locations.AppendForDriver(ctx, 901, report(42.87, 74.57), base.Add(time.Duration(i)*time.Hour))
			require.NoError(t, err)
		}

		cutoff := base.Add(3 * time.Hour)
		n, err := s.locations.DeleteOlderThan(ctx, cutoff)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		n, err = s.locations.DeleteOlderThan(ctx, cutoff)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		left, err := s.locations.VehicleHistory(ctx, 1, base.Add(-time.Hour), 100)
		require.NoError(t, err)
		require.Len(t, left, 3)
		for _, l := range left {
			assert.False(t, l.RecordedAt.Before(cutoff))
		}
	})

	t.Run("RegistryQueries", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.shifts.StartShift(ctx, 1001, 1, base)
		require.NoError(t, err)
		_, err = s.shifts.StartShift(ctx, 1002, 5, base)
		require.NoError(t, err)

		n, err := s.registry.ActiveVehicleCount(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		onShift := true
		busy, err := s.registry.ListVehicles(ctx, ports.VehicleFilter{OnShift: &onShift})
		require.NoError(t, err)
		assert.Len(t, busy, 2)

		free := false
		available, err := s.registry.ListVehicles(ctx, ports.VehicleFilter{ActiveOnly: true, OnShift: &free})
		require.NoError(t, err)
		require.Len(t, available, 2)
		for _, v := range available {
			assert.True(t, v.Active)
			assert.NotEqual(t, int64(1), v.ID)
		}

		v, err := s.registry.GetVehicle(ctx, 3)
		require.NoError(t, err)
		assert.False(t, v.Active)

		r, err := s.registry.GetRoute(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, r.Path, 3)
		require.NotNil(t, r.WorkingHours)

		_, err = s.registry.GetRoute(ctx, 42)
		assert.True(t, errors.Is(err, domain.ErrNotFound))

		routes, err := s.registry.ListRoutes(ctx, true)
		require.NoError(t, err)
		assert.Len(t, routes, 2)
	})

	t.Run("ListAndStats", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a, err := s.shifts.StartShift(ctx, 1101, 1, base)
		require.NoError(t, err)
		_, err = s.shifts.CompleteShift(ctx, a.ID, base.Add(2*time.Hour))
		require.NoError(t, err)
		b, err := s.shifts.StartShift(ctx, 1101, 2, base.Add(3*time.Hour))
		require.NoError(t, err)
		_, err = s.shifts.CompleteShift(ctx, b.ID, base.Add(7*time.Hour))
		require.NoError(t, err)
		_, err = s.shifts.StartShift(ctx, 1102, 1, base.Add(8*time.Hour))
		require.NoError(t, err)

		mine, err := s.shifts.ListShifts(ctx, ports.ShiftFilter{DriverID: 1101, Status: domain.ShiftCompleted})
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, b.ID, mine[0].ID)

		st, err := s.shifts.Stats(ctx, base.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 3, st.TotalShifts)
		assert.Equal(t, 1, st.ActiveShifts)
		assert.Equal(t, 2, st.CompletedShifts)
		assert.InDelta(t, 3.0, st.AverageDurationHours, 1e-6)
	})
}
