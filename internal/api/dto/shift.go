package dto

import "time"

type StartShiftRequest struct {
	VehicleID int64 `json:"vehicle_id"`
}

type ShiftResponse struct {
	ID              int64      `json:"id"`
	DriverID        int64      `json:"driver_id"`
	VehicleID       int64      `json:"vehicle_id"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at"`
	Status          string     `json:"status"`
	DurationSeconds int64      `json:"duration_seconds"`
	DurationHours   float64    `json:"duration_hours"`
}

type ListShiftsResponse struct {
	Shifts []ShiftResponse `json:"shifts"`
	Count  int             `json:"count"`
}

type ShiftStatisticsResponse struct {
	PeriodDays           int     `json:"period_days"`
	TotalShifts          int     `json:"total_shifts"`
	ActiveShifts         int     `json:"active_shifts"`
	CompletedShifts      int     `json:"completed_shifts"`
	AverageDurationHours float64 `json:"average_duration_hours"`
}
