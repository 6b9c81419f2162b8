package events

import (
	"encoding/json"
	"testing"
	"time"
	"transit-tracking-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubjectToken(t *testing.T) {
	cases := map[string]string{
		"vehicles":      "vehicles",
		" vehicles ":    "vehicles",
		"fleet.live":    "fleet_live",
		"a b>c*d/e":     "a_b_c_d_e",
		"":              "_",
		"   ":           "_",
	}
	for in, want := range cases {
		assert.Equal(t, want, subjectToken(in), "input %q", in)
	}
}

func TestSubject(t *testing.T) {
	routeID := int64(7)

	assert.Equal(t, "vehicles.7.12", Subject("vehicles", domain.LatestPosition{VehicleID: 12, RouteID: &routeID}))
	assert.Equal(t, "vehicles.none.12", Subject("vehicles", domain.LatestPosition{VehicleID: 12}))
	assert.Equal(t, "city_fleet.7.3", Subject("city.fleet", domain.LatestPosition{VehicleID: 3, RouteID: &routeID}))
}

func TestPositionMessageJSON(t *testing.T) {
	routeID := int64(7)
	speed := 45.5
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.FixedZone("KGT", 6*3600))

	b, err := json.Marshal(NewPositionMessage(domain.LatestPosition{
		ShiftID:     4,
		VehicleID:   12,
		VehicleType: domain.VehicleTrolleybus,
		RouteID:     &routeID,
		Latitude:    42.8746,
		Longitude:   74.5698,
		Speed:       &speed,
		RecordedAt:  at,
	}))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "trolleybus", got["vehicle_type"])
	assert.Equal(t, 45.5, got["speed"])
	assert.Nil(t, got["heading"])
	assert.Equal(t, "2026-03-01T02:00:00Z", got["recorded_at"])
}
