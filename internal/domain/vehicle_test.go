package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVehicleType(t *testing.T) {
	got, err := ParseVehicleType("Electric-Bus")
	require.NoError(t, err)
	assert.Equal(t, VehicleElectricBus, got)

	_, err = ParseVehicleType("tram")
	assert.Error(t, err)
}

func TestVehicleValidate(t *testing.T) {
	zero := 0
	v := &Vehicle{RegistrationNumber: "AB", Type: "tram", Capacity: &zero}

	err := v.Validate()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("registration_number"))
	assert.True(t, verr.Has("vehicle_type"))
	assert.True(t, verr.Has("capacity"))

	capacity := 40
	ok := &Vehicle{RegistrationNumber: "01KG123ABC", Type: VehicleBus, Capacity: &capacity}
	assert.NoError(t, ok.Validate())
}

func TestRouteValidateRequiresTwoPoints(t *testing.T) {
	r := &Route{
		Number:           "7",
		Name:             "Center - Airport",
		Type:             VehicleBus,
		StartCoordinates: Coordinates{Lat: 42.87, Lng: 74.59},
		EndCoordinates:   Coordinates{Lat: 43.06, Lng: 74.47},
		Path:             []Coordinates{{Lat: 42.87, Lng: 74.59}},
	}

	err := r.Validate()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("path"))

	r.Path = append(r.Path, Coordinates{Lat: 43.06, Lng: 74.47})
	assert.NoError(t, r.Validate())
}

func TestIdentityRequire(t *testing.T) {
	assert.NoError(t, Identity{ID: 1, Role: RoleDriver}.Require(RoleDriver))

	err := Identity{ID: 1, Role: RoleDriver, Blocked: true}.Require(RoleDriver)
	assert.True(t, errors.Is(err, ErrForbidden))

	err = Identity{ID: 2, Role: RoleAdmin}.Require(RoleDriver)
	assert.True(t, errors.Is(err, ErrForbidden))
}
