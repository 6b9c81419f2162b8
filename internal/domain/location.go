package domain

import (
	"fmt"
	"time"
)

const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
	MaxHeading   = 360.0
)

// LocationReport is a GPS fix as submitted by a driver's client.
// It carries no timestamp: the capture time is assigned by the server on acceptance.
type LocationReport struct {
	Latitude  float64
	Longitude float64
	Speed     *float64
	Heading   *float64
	Accuracy  *float64
}

// Validate reports every out-of-range field, not only the first.
func (r LocationReport) Validate() error {
	var verr ValidationError

	if !inRange(r.Latitude, MinLatitude, MaxLatitude) {
		verr.Add("latitude", fmt.Sprintf("must be between %g and %g", MinLatitude, MaxLatitude))
	}
	if !inRange(r.Longitude, MinLongitude, MaxLongitude) {
		verr.Add("longitude", fmt.Sprintf("must be between %g and %g", MinLongitude, MaxLongitude))
	}
	if r.Speed != nil && !(*r.Speed >= 0) {
		verr.Add("speed", "must be greater than or equal to 0")
	}
	if r.Heading != nil && !inRange(*r.Heading, 0, MaxHeading) {
		verr.Add("heading", fmt.Sprintf("must be between 0 and %g", MaxHeading))
	}
	if r.Accuracy != nil && !(*r.Accuracy >= 0) {
		verr.Add("accuracy", "must be greater than or equal to 0")
	}

	return verr.OrNil()
}

// NaN fails every comparison and is rejected here.
func inRange(v, lo, hi float64) bool { return v >= lo && v <= hi }

// LocationSample is one immutable GPS fix owned by a shift.
type LocationSample struct {
	ID         int64
	VehicleID  int64
	ShiftID    int64
	Latitude   float64
	Longitude  float64
	Speed      *float64
	Heading    *float64
	Accuracy   *float64
	RecordedAt time.Time
}

// LatestPosition is the newest sample of an active shift joined with its vehicle and route.
type LatestPosition struct {
	ShiftID            int64
	VehicleID          int64
	RegistrationNumber string
	VehicleType        VehicleType
	RouteID            *int64
	RouteNumber        *string
	Latitude           float64
	Longitude          float64
	Speed              *float64
	Heading            *float64
	Accuracy           *float64
	RecordedAt         time.Time
}
