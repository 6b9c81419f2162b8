package handlers

import (
	"time"
	"transit-tracking-service/internal/api/dto"
	"transit-tracking-service/internal/domain"
	"transit-tracking-service/internal/services"
)

func toShiftResponse(s *domain.Shift, now time.Time) dto.ShiftResponse {
	return dto.ShiftResponse{
		ID:              s.ID,
		DriverID:        s.DriverID,
		VehicleID:       s.VehicleID,
		StartedAt:       s.StartedAt,
		EndedAt:         s.EndedAt,
		Status:          string(s.Status),
		DurationSeconds: s.DurationSeconds(now),
		DurationHours:   s.DurationHours(now),
	}
}

func toShiftList(shifts []*domain.Shift, now time.Time) dto.ListShiftsResponse {
	res := dto.ListShiftsResponse{Shifts: make([]dto.ShiftResponse, 0, len(shifts))}
	for _, s := range shifts {
		res.Shifts = append(res.Shifts, toShiftResponse(s, now))
	}
	res.Count = len(res.Shifts)
	return res
}

func toLocationResponse(l domain.LocationSample) dto.LocationResponse {
	return dto.LocationResponse{
		ID:         l.ID,
		VehicleID:  l.VehicleID,
		ShiftID:    l.ShiftID,
		Latitude:   l.Latitude,
		Longitude:  l.Longitude,
		Speed:      l.Speed,
		Heading:    l.Heading,
		Accuracy:   l.Accuracy,
		RecordedAt: l.RecordedAt,
	}
}

func toLocationList(samples []domain.LocationSample) dto.ListLocationsResponse {
	res := dto.ListLocationsResponse{Locations: make([]dto.LocationResponse, 0, len(samples))}
	for _, l := range samples {
		res.Locations = append(res.Locations, toLocationResponse(l))
	}
	res.Count = len(res.Locations)
	return res
}

func toTrackResponse(cur *services.CurrentTrack) dto.TrackResponse {
	res := dto.TrackResponse{
		ShiftID:            cur.Shift.ID,
		VehicleID:          cur.Vehicle.ID,
		RegistrationNumber: cur.Vehicle.RegistrationNumber,
		StartedAt:          cur.Shift.StartedAt,
		Track:              make([]dto.LocationResponse, 0, len(cur.Samples)),
	}
	if cur.Route != nil {
		res.RouteNumber = &cur.Route.Number
	}
	for _, l := range cur.Samples {
		res.Track = append(res.Track, toLocationResponse(l))
	}
	res.Count = len(res.Track)
	return res
}

func toLatestResponse(p domain.LatestPosition) dto.LatestPositionResponse {
	return dto.LatestPositionResponse{
		ShiftID:            p.ShiftID,
		VehicleID:          p.VehicleID,
		RegistrationNumber: p.RegistrationNumber,
		VehicleType:        string(p.VehicleType),
		RouteID:            p.RouteID,
		RouteNumber:        p.RouteNumber,
		Latitude:           p.Latitude,
		Longitude:          p.Longitude,
		Speed:              p.Speed,
		Heading:            p.Heading,
		Accuracy:           p.Accuracy,
		RecordedAt:         p.RecordedAt,
	}
}

func toVehicleResponse(v *domain.Vehicle) dto.VehicleResponse {
	return dto.VehicleResponse{
		ID:                 v.ID,
		RegistrationNumber: v.RegistrationNumber,
		VehicleType:        string(v.Type),
		Model:              v.Model,
		Capacity:           v.Capacity,
		RouteID:            v.RouteID,
		AssignedDriverID:   v.AssignedDriverID,
		Active:             v.Active,
	}
}

func toRouteResponse(rt *domain.Route) dto.RouteResponse {
	path := make([][]float64, 0, len(rt.Path))
	for _, c := range rt.Path {
		path = append(path, c.ToList())
	}
	return dto.RouteResponse{
		ID:               rt.ID,
		Number:           rt.Number,
		Name:             rt.Name,
		RouteType:        string(rt.Type),
		StartPoint:       rt.StartPoint,
		EndPoint:         rt.EndPoint,
		StartCoordinates: rt.StartCoordinates.ToList(),
		EndCoordinates:   rt.EndCoordinates.ToList(),
		Path:             path,
		WorkingHours:     rt.WorkingHours,
		Active:           rt.Active,
	}
}
