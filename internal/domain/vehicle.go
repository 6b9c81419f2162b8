package domain

import (
	"fmt"
	"strings"
)

type VehicleType string

const (
	VehicleBus         VehicleType = "bus"
	VehicleTrolleybus  VehicleType = "trolleybus"
	VehicleElectricBus VehicleType = "electric_bus"
	VehicleMinibus     VehicleType = "minibus"
)

var vehicleTypes = []VehicleType{VehicleBus, VehicleTrolleybus, VehicleElectricBus, VehicleMinibus}

// ParseVehicleType accepts the canonical value or its hyphenated form ("electric-bus").
func ParseVehicleType(s string) (VehicleType, error) {
	v := VehicleType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if v.Valid() {
		return v, nil
	}
	return "", fmt.Errorf("parse vehicle type: unknown value %q", s)
}

func (t VehicleType) Valid() bool {
	for _, v := range vehicleTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Represents a physical transport unit.
// Vehicles are reference data: the tracking core reads them but never mutates them.
// An inactive vehicle cannot be used to start a shift.
type Vehicle struct {
	ID                 int64
	RegistrationNumber string
	Type               VehicleType
	Model              *string
	Capacity           *int
	RouteID            *int64
	AssignedDriverID   *int64
	Active             bool
}

// Validate checks the registry-level rules for a vehicle record.
func (v *Vehicle) Validate() error {
	var verr ValidationError

	if len(strings.TrimSpace(v.RegistrationNumber)) < 3 {
		verr.Add("registration_number", "must be at least 3 characters")
	}
	if !v.Type.Valid() {
		verr.Add("vehicle_type", fmt.Sprintf("unknown vehicle type %q", v.Type))
	}
	if v.Capacity != nil && *v.Capacity <= 0 {
		verr.Add("capacity", "must be positive")
	}

	return verr.OrNil()
}
