package domain

// Immutable geographic coordinates (latitude, longitude) in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both components are inside the WGS84 ranges.
func (c Coordinates) Valid() bool {
	return c.Lat >= MinLatitude && c.Lat <= MaxLatitude &&
		c.Lng >= MinLongitude && c.Lng <= MaxLongitude
}

// Return coordinates as [lat, lng] for map clients.
func (c Coordinates) ToList() []float64 { return []float64{c.Lat, c.Lng} }
