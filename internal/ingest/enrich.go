package ingest

import (
	"github.com/camroute/fare-engine/internal/geodata"
	"github.com/camroute/fare-engine/pkg/geo"
)

// Maneuver weights for the turn count. Heavier weights for junction types
// that demand more driver attention.
var turnWeights = map[string]int{
	"turn":         1,
	"new name":     1,
	"notification": 1,
	"rotary":       2,
	"roundabout":   2,
}

// Maneuver types that are navigation bookkeeping, not turns.
var ignoredManeuvers = map[string]bool{
	"depart":      true,
	"arrive":      true,
	"continue":    true,
	"merge":       true,
	"fork":        true,
	"on ramp":     true,
	"off ramp":    true,
	"end of road": true,
}

// minBearingCoverage is the share of maneuvers that must carry bearing data
// before the turn force is considered measurable.
const minBearingCoverage = 0.5

// weightedTurnCount counts direction changes along the route, weighted by
// maneuver type. Unknown maneuver types do not count.
func weightedTurnCount(steps []geodata.RouteStep) int {
	total := 0
	for _, s := range steps {
		if ignoredManeuvers[s.Maneuver.Type] {
			continue
		}
		total += turnWeights[s.Maneuver.Type]
	}
	return total
}

// turnForce sums the bearing change of every maneuver and normalizes by
// route length, giving degrees of direction change per kilometre. It returns
// nil when fewer than half the maneuvers carry bearings or the route has no
// length, since a partial sum would understate the force.
func turnForce(steps []geodata.RouteStep, distanceM float64) *float64 {
	if len(steps) == 0 || distanceM <= 0 {
		return nil
	}

	var sum float64
	withBearings := 0
	for _, s := range steps {
		if s.Maneuver.BearingBefore == 0 && s.Maneuver.BearingAfter == 0 {
			continue
		}
		withBearings++
		sum += geo.BearingDelta(s.Maneuver.BearingBefore, s.Maneuver.BearingAfter)
	}

	if float64(withBearings)/float64(len(steps)) < minBearingCoverage {
		return nil
	}

	force := sum / (distanceM / 1000.0)
	return &force
}

// sinuosity is the ratio of the routed distance to the great-circle distance
// between the endpoints. Clamped to at least 1.0; degenerate trips whose
// endpoints are under a metre apart get the neutral value.
func sinuosity(routeDistanceM float64, depart, arrival geo.Coordinate) float64 {
	straight := geo.HaversineMeters(depart, arrival)
	if straight < 1.0 {
		return 1.0
	}
	ratio := routeDistanceM / straight
	if ratio < 1.0 {
		return 1.0
	}
	return ratio
}

// dominantRoadClass picks the road class covering the greatest cumulative
// distance across the route's steps. Steps without a class are skipped;
// if no step carries one the result is empty.
func dominantRoadClass(steps []geodata.RouteStep) string {
	byClass := make(map[string]float64)
	for _, s := range steps {
		if s.Class == "" {
			continue
		}
		byClass[s.Class] += s.DistanceM
	}

	dominant := ""
	best := 0.0
	for class, distance := range byClass {
		if distance > best {
			best = distance
			dominant = class
		}
	}
	return dominant
}

// enrichFromRoute derives the stored route metrics from a detailed route.
func enrichFromRoute(route *geodata.Route, depart, arrival geo.Coordinate) Enrichment {
	e := Enrichment{
		DistanceM: route.DistanceM,
		RoadClass: dominantRoadClass(route.Steps),
	}

	if route.DurationS > 0 {
		duration := route.DurationS
		e.DurationS = &duration
	}

	sinu := sinuosity(route.DistanceM, depart, arrival)
	e.Sinuosity = &sinu

	turns := weightedTurnCount(route.Steps)
	e.TurnCount = &turns

	e.TurnForce = turnForce(route.Steps, route.DistanceM)

	if mean, known := route.MeanCongestion(); known {
		e.PlatformCongestion = &mean
	}

	return e
}
