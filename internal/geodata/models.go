package geodata

import "github.com/camroute/fare-engine/pkg/geo"

// AdministrativeInfo describes the administrative context of a coordinate as
// returned by reverse geocoding. Any field may be empty; coverage in Cameroon
// is patchy and callers degrade to coarser fields.
type AdministrativeInfo struct {
	Label        string `json:"label,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"` // quartier
	City         string `json:"city,omitempty"`
	District     string `json:"district,omitempty"` // arrondissement
	Department   string `json:"department,omitempty"`
}

// Empty reports whether reverse geocoding produced no usable context.
func (a AdministrativeInfo) Empty() bool {
	return a.Label == "" && a.Neighborhood == "" && a.City == "" &&
		a.District == "" && a.Department == ""
}

// Maneuver is a single navigation instruction on a route step.
type Maneuver struct {
	Type          string  `json:"type"`
	Modifier      string  `json:"modifier,omitempty"`
	BearingBefore float64 `json:"bearing_before"`
	BearingAfter  float64 `json:"bearing_after"`
}

// RouteStep is one step of a routed leg, carrying the pieces the trip
// enrichment pipeline consumes.
type RouteStep struct {
	DistanceM float64  `json:"distance_m"`
	DurationS float64  `json:"duration_s"`
	Name      string   `json:"name,omitempty"`
	Class     string   `json:"class,omitempty"` // road class at the step's first intersection
	Maneuver  Maneuver `json:"maneuver"`
}

// Route is a full routed itinerary between two coordinates.
type Route struct {
	DistanceM  float64     `json:"distance_m"`
	DurationS  float64     `json:"duration_s"`
	Steps      []RouteStep `json:"steps,omitempty"`
	Congestion []string    `json:"congestion,omitempty"` // per-segment categories
}

// Congestion categories reported by the routing provider, mapped onto the
// 0-100 platform scale.
var congestionScale = map[string]float64{
	"low":      15,
	"moderate": 40,
	"heavy":    70,
	"severe":   95,
}

// MeanCongestion averages the per-segment congestion annotations on the
// 0-100 scale. Segments reported as unknown are excluded; when every segment
// is unknown the second return is false.
func (r *Route) MeanCongestion() (float64, bool) {
	var sum float64
	var n int
	for _, category := range r.Congestion {
		if v, ok := congestionScale[category]; ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// RouteFacts is the distance/duration pair the estimation path consumes.
// Degraded marks a haversine substitution; DurationKnown is false in that
// case because straight-line geometry says nothing about drivable time.
type RouteFacts struct {
	DistanceM     float64 `json:"distance_m"`
	DurationS     float64 `json:"duration_s"`
	DurationKnown bool    `json:"duration_known"`
	Degraded      bool    `json:"degraded"`
}

// Matrix holds batched one-to-many route distances. A nil entry in Distances
// means the provider could not route that pair.
type Matrix struct {
	DistancesM []float64 `json:"distances_m"`
	DurationsS []float64 `json:"durations_s"`
}

// WeatherUnknown is the sentinel for a missing or failed weather lookup.
const WeatherUnknown = -1

// Weather codes on the project scale.
const (
	WeatherClear     = 0
	WeatherLightRain = 1
	WeatherHeavyRain = 2
	WeatherStorm     = 3
)

// RegionResult pairs a containment region with a flag recording whether the
// isochrone was substituted by a fixed-radius circle.
type RegionResult struct {
	Region   geo.Region
	Degraded bool
}
