package geo

import "math"

const (
	earthRadiusM    = 6371000.0
	averageSpeedKmh = 30.0 // city traffic average
)

// HaversineMeters calculates the great-circle distance in metres between two
// coordinates.
func HaversineMeters(a, b Coordinate) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180.0
	dLon := (b.Lon - a.Lon) * math.Pi / 180.0

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180.0)*math.Cos(b.Lat*math.Pi/180.0)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusM * c
}

// HaversineKm calculates the great-circle distance in kilometres, rounded to
// two decimal places.
func HaversineKm(a, b Coordinate) float64 {
	return math.Round(HaversineMeters(a, b)/10) / 100
}

// EstimateDurationSeconds returns the estimated travel time in seconds for a
// given distance in metres, assuming the configured average city speed.
func EstimateDurationSeconds(distanceM float64) float64 {
	return distanceM / (averageSpeedKmh * 1000 / 3600)
}

// BearingDelta returns the smallest absolute angle in degrees between two
// compass bearings.
func BearingDelta(before, after float64) float64 {
	d := math.Mod(math.Abs(after-before), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}
