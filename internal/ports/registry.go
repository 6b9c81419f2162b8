package ports

import (
	"context"
	"transit-tracking-service/internal/domain"
)

// Filter for vehicle listings. Zero values mean "any".
type VehicleFilter struct {
	Type       domain.VehicleType
	RouteID    int64
	ActiveOnly bool
	// OnShift: nil any, true only vehicles with an active shift, false only vehicles without one.
	OnShift *bool
}

// Port: read-only access to vehicle and route reference data.
type Registry interface {
	GetVehicle(ctx context.Context, id int64) (*domain.Vehicle, error)
	ListVehicles(ctx context.Context, f VehicleFilter) ([]*domain.Vehicle, error)
	GetRoute(ctx context.Context, id int64) (*domain.Route, error)
	ListRoutes(ctx context.Context, activeOnly bool) ([]*domain.Route, error)
	// Number of active shifts whose vehicle is assigned to the route.
	ActiveVehicleCount(ctx context.Context, routeID int64) (int, error)
}
