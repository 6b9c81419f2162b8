package domain

import (
	"math"
	"time"
)

type ShiftStatus string

const (
	ShiftActive    ShiftStatus = "active"
	ShiftCompleted ShiftStatus = "completed"
)

// Represents one driver paired with one vehicle for a bounded period.
// A shift starts active and moves to completed exactly once; completed is terminal.
// EndedAt is nil while active and never earlier than StartedAt once set.
type Shift struct {
	ID        int64
	DriverID  int64
	VehicleID int64
	StartedAt time.Time
	EndedAt   *time.Time
	Status    ShiftStatus
}

func (s *Shift) IsActive() bool { return s.Status == ShiftActive }

// Complete closes the shift at the given time.
// The end time is clamped to StartedAt so a skewed clock can never produce a negative duration.
func (s *Shift) Complete(at time.Time) error {
	if s.Status != ShiftActive {
		return &TransitionError{Op: "complete", From: s.Status}
	}
	if at.Before(s.StartedAt) {
		at = s.StartedAt
	}
	s.EndedAt = &at
	s.Status = ShiftCompleted
	return nil
}

// CanDelete reports whether the shift may be removed. Only completed shifts can be.
func (s *Shift) CanDelete() error {
	if s.Status != ShiftCompleted {
		return &TransitionError{Op: "delete", From: s.Status}
	}
	return nil
}

// Duration is start to end, or start to now while the shift is still active.
func (s *Shift) Duration(now time.Time) time.Duration {
	end := now
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	if end.Before(s.StartedAt) {
		return 0
	}
	return end.Sub(s.StartedAt)
}

func (s *Shift) DurationSeconds(now time.Time) int64 {
	return int64(s.Duration(now) / time.Second)
}

// DurationHours is rounded to two decimals.
func (s *Shift) DurationHours(now time.Time) float64 {
	return math.Round(s.Duration(now).Hours()*100) / 100
}

// ShiftStats summarises shifts started within a trailing window.
type ShiftStats struct {
	PeriodDays           int
	TotalShifts          int
	ActiveShifts         int
	CompletedShifts      int
	AverageDurationHours float64
}
