package estimate

import (
	"context"
	"sync"

	"github.com/camroute/fare-engine/internal/corpus"
	"github.com/camroute/fare-engine/internal/geodata"
	"github.com/camroute/fare-engine/pkg/config"
	"github.com/camroute/fare-engine/pkg/geo"
)

// RegionProvider supplies the containment region around a coordinate: an
// isochrone when the provider cooperates, a circle otherwise.
type RegionProvider interface {
	RegionAround(ctx context.Context, center geo.Coordinate, minutes int, fallbackRadiusM float64) geodata.RegionResult
}

// Matcher runs the tiered similarity search. Tiers escalate monotonically:
// a later tier runs only when the previous one matched nothing.
type Matcher struct {
	regions RegionProvider
	cfg     *config.EstimatorConfig
}

// NewMatcher creates a similarity matcher.
func NewMatcher(regions RegionProvider, cfg *config.EstimatorConfig) *Matcher {
	return &Matcher{regions: regions, cfg: cfg}
}

type regionPair struct {
	depart  geo.Region
	arrival geo.Region

	degraded bool
}

// regionsAround fetches the depart and arrival regions concurrently; the
// two lookups are independent.
func (m *Matcher) regionsAround(ctx context.Context, q *Query, minutes int, radiusM float64) regionPair {
	var departResult, arrivalResult geodata.RegionResult

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		departResult = m.regions.RegionAround(ctx, q.Depart, minutes, radiusM)
	}()
	go func() {
		defer wg.Done()
		arrivalResult = m.regions.RegionAround(ctx, q.Arrival, minutes, radiusM)
	}()
	wg.Wait()

	return regionPair{
		depart:   departResult.Region,
		arrival:  arrivalResult.Region,
		degraded: departResult.Degraded || arrivalResult.Degraded,
	}
}

func (p regionPair) containsTrip(t *corpus.Trip) bool {
	return p.depart.Contains(t.Depart.Coordinate()) && p.arrival.Contains(t.Arrival.Coordinate())
}

// contextFilter keeps trips whose recorded context equals the query's, for
// the dimensions the query specifies.
func contextFilter(trips []*corpus.Trip, q *Query) []*corpus.Trip {
	matched := make([]*corpus.Trip, 0, len(trips))
	for _, t := range trips {
		if q.TimeOfDay != "" && t.TimeOfDay != q.TimeOfDay {
			continue
		}
		if q.WeatherCode != nil && (t.WeatherCode == nil || *t.WeatherCode != *q.WeatherCode) {
			continue
		}
		matched = append(matched, t)
	}
	return matched
}

func (m *Matcher) distanceComparable(t *corpus.Trip, q *Query) bool {
	if q.RouteDistanceM <= 0 {
		return true
	}
	tolerance := q.RouteDistanceM * m.cfg.DistanceTolerancePct / 100
	delta := t.DistanceM - q.RouteDistanceM
	return delta >= -tolerance && delta <= tolerance
}

// Match runs the three tiers over the area-filtered candidates and returns
// the first tier with at least one match, or TierNone.
func (m *Matcher) Match(ctx context.Context, q *Query, candidates []*corpus.Trip) *MatchSet {
	if len(candidates) == 0 {
		return &MatchSet{Tier: TierNone}
	}

	contextual := contextFilter(candidates, q)
	degradations := []string{}

	narrow := m.regionsAround(ctx, q, m.cfg.NarrowIsochroneMinutes, m.cfg.NarrowFallbackRadiusM)
	if narrow.degraded {
		degradations = append(degradations, "narrow_region_circle")
	}

	var narrowMatches []*corpus.Trip
	for _, t := range contextual {
		if narrow.containsTrip(t) && m.distanceComparable(t, q) {
			narrowMatches = append(narrowMatches, t)
		}
	}
	if len(narrowMatches) > 0 {
		return &MatchSet{Tier: TierNarrow, Trips: narrowMatches, Degradations: degradations}
	}

	wide := m.regionsAround(ctx, q, m.cfg.WideIsochroneMinutes, m.cfg.WideFallbackRadiusM)
	if wide.degraded {
		degradations = append(degradations, "wide_region_circle")
	}

	var wideMatches []*corpus.Trip
	for _, t := range contextual {
		if wide.containsTrip(t) {
			wideMatches = append(wideMatches, t)
		}
	}
	if len(wideMatches) > 0 {
		return &MatchSet{Tier: TierWide, Trips: wideMatches, Degradations: degradations}
	}

	// Same containment tests, context filter dropped
	var relaxedMatches []*corpus.Trip
	for _, t := range candidates {
		if (narrow.containsTrip(t) && m.distanceComparable(t, q)) || wide.containsTrip(t) {
			relaxedMatches = append(relaxedMatches, t)
		}
	}
	if len(relaxedMatches) > 0 {
		return &MatchSet{Tier: TierContextRelaxed, Trips: relaxedMatches, Degradations: degradations}
	}

	return &MatchSet{Tier: TierNone, Degradations: degradations}
}
