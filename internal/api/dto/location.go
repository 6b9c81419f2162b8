package dto

import "time"

// Coordinates are pointers so a missing field can be told apart from 0.
type LocationReportRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Speed     *float64 `json:"speed"`
	Heading   *float64 `json:"heading"`
	Accuracy  *float64 `json:"accuracy"`
}

type LocationResponse struct {
	ID         int64     `json:"id"`
	VehicleID  int64     `json:"vehicle_id"`
	ShiftID    int64     `json:"shift_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Speed      *float64  `json:"speed"`
	Heading    *float64  `json:"heading"`
	Accuracy   *float64  `json:"accuracy"`
	RecordedAt time.Time `json:"recorded_at"`
}

type ListLocationsResponse struct {
	Locations []LocationResponse `json:"locations"`
	Count     int                `json:"count"`
}

type LatestPositionResponse struct {
	ShiftID            int64     `json:"shift_id"`
	VehicleID          int64     `json:"vehicle_id"`
	RegistrationNumber string    `json:"registration_number"`
	VehicleType        string    `json:"vehicle_type"`
	RouteID            *int64    `json:"route_id"`
	RouteNumber        *string   `json:"route_number"`
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	Speed              *float64  `json:"speed"`
	Heading            *float64  `json:"heading"`
	Accuracy           *float64  `json:"accuracy"`
	RecordedAt         time.Time `json:"recorded_at"`
}

type LatestPositionsResponse struct {
	Vehicles []LatestPositionResponse `json:"vehicles"`
	Count    int                      `json:"count"`
}

// TrackResponse is the caller's current shift with its samples, oldest first.
type TrackResponse struct {
	ShiftID            int64              `json:"shift_id"`
	VehicleID          int64              `json:"vehicle_id"`
	RegistrationNumber string             `json:"registration_number"`
	RouteNumber        *string            `json:"route_number"`
	StartedAt          time.Time          `json:"started_at"`
	Track              []LocationResponse `json:"track"`
	Count              int                `json:"count"`
}
