package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"transit-tracking-service/internal/domain"
)

type RouteSeed struct {
	ID           int64                `json:"id"`
	Number       string               `json:"number"`
	Name         string               `json:"name"`
	RouteType    string               `json:"route_type"`
	StartPoint   string               `json:"start_point"`
	EndPoint     string               `json:"end_point"`
	Start        domain.Coordinates   `json:"start"`
	End          domain.Coordinates   `json:"end"`
	Path         []domain.Coordinates `json:"path"`
	WorkingHours *string              `json:"working_hours"`
	Active       *bool                `json:"active"`
}

type VehicleSeed struct {
	ID                 int64   `json:"id"`
	RegistrationNumber string  `json:"registration_number"`
	VehicleType        string  `json:"vehicle_type"`
	Model              *string `json:"model"`
	Capacity           *int    `json:"capacity"`
	RouteID            *int64  `json:"route_id"`
	AssignedDriverID   *int64  `json:"assigned_driver_id"`
	Active             *bool   `json:"active"`
}

type FleetSeed struct {
	Routes   []RouteSeed   `json:"routes"`
	Vehicles []VehicleSeed `json:"vehicles"`
}

// Read and validate reference data from a JSON file.
func loadFleetSeed(jsonPath string) ([]*domain.Route, []*domain.Vehicle, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, nil, fmt.Errorf("seed fleet: read %q: %w", jsonPath, err)
	}

	var data FleetSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return nil, nil, fmt.Errorf("seed fleet: parse json: %w", err)
	}

	routes := make([]*domain.Route, 0, len(data.Routes))
	for i, item := range data.Routes {
		if item.ID <= 0 {
			return nil, nil, fmt.Errorf("seed fleet: invalid route id at index %d: %d", i+1, item.ID)
		}
		rt, err := domain.ParseVehicleType(item.RouteType)
		if err != nil {
			return nil, nil, fmt.Errorf("seed fleet: route %d: %w", item.ID, err)
		}
		r := &domain.Route{
			ID:               item.ID,
			Number:           item.Number,
			Name:             item.Name,
			Type:             rt,
			StartPoint:       item.StartPoint,
			EndPoint:         item.EndPoint,
			StartCoordinates: item.Start,
			EndCoordinates:   item.End,
			Path:             item.Path,
			WorkingHours:     item.WorkingHours,
			Active:           item.Active == nil || *item.Active,
		}
		if err := r.Validate(); err != nil {
			return nil, nil, fmt.Errorf("seed fleet: route %d: %w", item.ID, err)
		}
		routes = append(routes, r)
	}

	vehicles := make([]*domain.Vehicle, 0, len(data.Vehicles))
	for i, item := range data.Vehicles {
		if item.ID <= 0 {
			return nil, nil, fmt.Errorf("seed fleet: invalid vehicle id at index %d: %d", i+1, item.ID)
		}
		vt, err := domain.ParseVehicleType(item.VehicleType)
		if err != nil {
			return nil, nil, fmt.Errorf("seed fleet: vehicle %d: %w", item.ID, err)
		}
		v := &domain.Vehicle{
			ID:                 item.ID,
			RegistrationNumber: item.RegistrationNumber,
			Type:               vt,
			Model:              item.Model,
			Capacity:           item.Capacity,
			RouteID:            item.RouteID,
			AssignedDriverID:   item.AssignedDriverID,
			Active:             item.Active == nil || *item.Active,
		}
		if err := v.Validate(); err != nil {
			return nil, nil, fmt.Errorf("seed fleet: vehicle %d: %w", item.ID, err)
		}
		vehicles = append(vehicles, v)
	}

	if len(routes) == 0 && len(vehicles) == 0 {
		return nil, nil, errors.New("seed fleet: file contains no routes or vehicles")
	}

	return routes, vehicles, nil
}
