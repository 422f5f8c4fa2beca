package geo

import "fmt"

// Coordinate is an immutable latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate lies inside the WGS84 value ranges.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Equal reports whether two coordinates are the same point at roughly
// metre precision (5 decimal places).
func (c Coordinate) Equal(other Coordinate) bool {
	const eps = 1e-5
	dLat := c.Lat - other.Lat
	dLon := c.Lon - other.Lon
	if dLat < 0 {
		dLat = -dLat
	}
	if dLon < 0 {
		dLon = -dLon
	}
	return dLat < eps && dLon < eps
}

// String renders the coordinate as "lat,lon" with 6 decimal places.
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}
