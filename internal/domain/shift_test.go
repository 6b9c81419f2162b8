package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShiftCompleteTwiceFails(t *testing.T) {
	start := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	s := &Shift{ID: 1, DriverID: 10, VehicleID: 20, StartedAt: start, Status: ShiftActive}

	require.NoError(t, s.Complete(start.Add(8*time.Hour)))
	assert.Equal(t, ShiftCompleted, s.Status)
	require.NotNil(t, s.EndedAt)
	assert.True(t, s.EndedAt.Equal(start.Add(8*time.Hour)))

	err := s.Complete(start.Add(9 * time.Hour))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidStateTransition))

	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "complete", te.Op)
	assert.Equal(t, ShiftCompleted, te.From)

	// end time is not moved by the failed call
	assert.True(t, s.EndedAt.Equal(start.Add(8*time.Hour)))
}

func TestShiftCompleteClampsEndToStart(t *testing.T) {
	start := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	s := &Shift{StartedAt: start, Status: ShiftActive}

	require.NoError(t, s.Complete(start.Add(-time.Second)))
	assert.False(t, s.EndedAt.Before(s.StartedAt))
	assert.Equal(t, int64(0), s.DurationSeconds(start))
}

func TestShiftCanDelete(t *testing.T) {
	s := &Shift{Status: ShiftActive}
	err := s.CanDelete()
	assert.True(t, errors.Is(err, ErrInvalidStateTransition))

	s.Status = ShiftCompleted
	assert.NoError(t, s.CanDelete())
}

func TestShiftDuration(t *testing.T) {
	start := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		shift       Shift
		now         time.Time
		wantSeconds int64
		wantHours   float64
	}{
		{
			name:        "active uses now",
			shift:       Shift{StartedAt: start, Status: ShiftActive},
			now:         start.Add(90 * time.Minute),
			wantSeconds: 5400,
			wantHours:   1.5,
		},
		{
			name: "completed uses end",
			shift: func() Shift {
				end := start.Add(2*time.Hour + 20*time.Minute)
				return Shift{StartedAt: start, EndedAt: &end, Status: ShiftCompleted}
			}(),
			now:         start.Add(10 * time.Hour),
			wantSeconds: 8400,
			wantHours:   2.33,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantSeconds, tt.shift.DurationSeconds(tt.now))
			assert.InDelta(t, tt.wantHours, tt.shift.DurationHours(tt.now), 1e-9)
		})
	}
}
