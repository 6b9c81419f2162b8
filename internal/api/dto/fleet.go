package dto

type VehicleResponse struct {
	ID                 int64   `json:"id"`
	RegistrationNumber string  `json:"registration_number"`
	VehicleType        string  `json:"vehicle_type"`
	Model              *string `json:"model"`
	Capacity           *int    `json:"capacity"`
	RouteID            *int64  `json:"route_id"`
	AssignedDriverID   *int64  `json:"assigned_driver_id"`
	Active             bool    `json:"active"`
}

// CurrentLocation is null unless the vehicle is on an active shift that has reported.
type VehicleDetailResponse struct {
	VehicleResponse
	CurrentLocation *LatestPositionResponse `json:"current_location"`
}

type ListVehiclesResponse struct {
	Vehicles []VehicleResponse `json:"vehicles"`
	Count    int               `json:"count"`
}

// Coordinates are [lat, lng] pairs.
type RouteResponse struct {
	ID               int64       `json:"id"`
	Number           string      `json:"number"`
	Name             string      `json:"name"`
	RouteType        string      `json:"route_type"`
	StartPoint       string      `json:"start_point"`
	EndPoint         string      `json:"end_point"`
	StartCoordinates []float64   `json:"start_coordinates"`
	EndCoordinates   []float64   `json:"end_coordinates"`
	Path             [][]float64 `json:"path"`
	WorkingHours     *string     `json:"working_hours"`
	Active           bool        `json:"active"`
}

type RouteDetailResponse struct {
	RouteResponse
	ActiveVehicleCount int `json:"active_vehicle_count"`
}

type ListRoutesResponse struct {
	Routes []RouteResponse `json:"routes"`
	Count  int             `json:"count"`
}
