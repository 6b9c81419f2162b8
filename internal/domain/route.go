package domain

import (
	"fmt"
	"strings"
)

// Represents a static transit route.
// Path is the ordered polyline of the route and always holds at least two points.
type Route struct {
	ID               int64
	Number           string
	Name             string
	Type             VehicleType
	StartPoint       string
	EndPoint         string
	StartCoordinates Coordinates
	EndCoordinates   Coordinates
	Path             []Coordinates
	WorkingHours     *string
	Active           bool
}

// Validate checks the registry-level rules for a route record.
func (r *Route) Validate() error {
	var verr ValidationError

	if strings.TrimSpace(r.Number) == "" {
		verr.Add("number", "must not be empty")
	}
	if strings.TrimSpace(r.Name) == "" {
		verr.Add("name", "must not be empty")
	}
	if !r.Type.Valid() {
		verr.Add("route_type", fmt.Sprintf("unknown vehicle type %q", r.Type))
	}
	if !r.StartCoordinates.Valid() {
		verr.Add("start_coordinates", "out of range")
	}
	if !r.EndCoordinates.Valid() {
		verr.Add("end_coordinates", "out of range")
	}
	if len(r.Path) < 2 {
		verr.Add("path", "must contain at least 2 points")
	}
	for i, p := range r.Path {
		if !p.Valid() {
			verr.Add("path", fmt.Sprintf("point %d out of range", i))
			break
		}
	}

	return verr.OrNil()
}
