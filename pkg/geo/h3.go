package geo

import (
	"github.com/uber/h3-go/v4"
)

// H3 resolution levels used for cache keys and corpus indexing.
// See: https://h3geo.org/docs/core-library/restable
const (
	// H3ResolutionPlace buckets coordinates for reverse-geocode and isochrone
	// cache keys (~66m edge). Two requests inside the same cell share a cached
	// answer.
	H3ResolutionPlace = 10

	// H3ResolutionRoute buckets route endpoints for route-distance cache keys
	// (~175m edge).
	H3ResolutionRoute = 9

	// H3ResolutionWeather buckets coordinates for current-weather cache keys
	// (~8.5km edge); weather does not vary below that scale.
	H3ResolutionWeather = 5

	// H3ResolutionCorpus indexes stored trip endpoints for coarse spatial
	// queries (~460m edge).
	H3ResolutionCorpus = 8
)

// CellString returns the H3 cell hex string for a coordinate at the given
// resolution, or "" for invalid input.
func CellString(c Coordinate, resolution int) string {
	latLng := h3.NewLatLng(c.Lat, c.Lon)
	cell, err := h3.LatLngToCell(latLng, resolution)
	if err != nil {
		return ""
	}
	return cell.String()
}

// PlaceCell buckets a coordinate at the place resolution.
func PlaceCell(c Coordinate) string {
	return CellString(c, H3ResolutionPlace)
}

// RouteCell buckets a coordinate at the route-endpoint resolution.
func RouteCell(c Coordinate) string {
	return CellString(c, H3ResolutionRoute)
}

// WeatherCell buckets a coordinate at the weather resolution.
func WeatherCell(c Coordinate) string {
	return CellString(c, H3ResolutionWeather)
}

// CorpusCell buckets a coordinate at the corpus-index resolution.
func CorpusCell(c Coordinate) string {
	return CellString(c, H3ResolutionCorpus)
}
