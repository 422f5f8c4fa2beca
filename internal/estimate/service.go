package estimate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/camroute/fare-engine/internal/corpus"
	"github.com/camroute/fare-engine/internal/geodata"
	"github.com/camroute/fare-engine/pkg/common"
	"github.com/camroute/fare-engine/pkg/config"
	"github.com/camroute/fare-engine/pkg/geo"
	"github.com/camroute/fare-engine/pkg/tracing"
)

// GeoGateway is the external-facts facade the orchestrator consumes.
type GeoGateway interface {
	ReverseGeocode(ctx context.Context, c geo.Coordinate) (*geodata.AdministrativeInfo, error)
	RouteFacts(ctx context.Context, from, to geo.Coordinate) (geodata.RouteFacts, error)
	RegionAround(ctx context.Context, center geo.Coordinate, minutes int, fallbackRadiusM float64) geodata.RegionResult
	DistanceMatrix(ctx context.Context, source geo.Coordinate, destinations []geo.Coordinate) ([]float64, bool)
	CurrentWeather(ctx context.Context, c geo.Coordinate) int
}

// CorpusReader is the trip store read path the engine consumes.
type CorpusReader interface {
	CorpusSource
	CorpusAggregates
}

// Service orchestrates one fare estimation: context resolution, the tiered
// similarity search, adjustment or fallback, and the what-if scenarios.
type Service struct {
	gateway  GeoGateway
	filter   *CandidateFilter
	matcher  *Matcher
	adjuster *Adjuster
	fallback *Fallback
	cfg      *config.EstimatorConfig

	now func() time.Time
}

// NewService wires the engine components over the gateway, corpus and
// classifier.
func NewService(gateway GeoGateway, corpusReader CorpusReader, classifier BandClassifier, cfg *config.EstimatorConfig) *Service {
	return &Service{
		gateway:  gateway,
		filter:   NewCandidateFilter(corpusReader, cfg),
		matcher:  NewMatcher(gateway, cfg),
		adjuster: NewAdjuster(gateway, cfg),
		fallback: NewFallback(corpusReader, classifier, cfg),
		cfg:      cfg,
		now:      time.Now,
	}
}

// resolveContext gathers the administrative areas for both endpoints and
// the live weather when the request leaves it out. The three lookups are
// independent and run concurrently. Failures degrade to unknown values,
// never abort.
func (s *Service) resolveContext(ctx context.Context, req *EstimateRequest) (departInfo, arrivalInfo *geodata.AdministrativeInfo, weather *int, degradations []string) {
	var mu sync.Mutex
	var wg sync.WaitGroup

	note := func(reason string) {
		mu.Lock()
		degradations = append(degradations, reason)
		mu.Unlock()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		info, err := s.gateway.ReverseGeocode(ctx, req.Depart())
		if err != nil {
			info = &geodata.AdministrativeInfo{}
			note("depart_admin_unknown")
		}
		departInfo = info
	}()
	go func() {
		defer wg.Done()
		info, err := s.gateway.ReverseGeocode(ctx, req.Arrival())
		if err != nil {
			info = &geodata.AdministrativeInfo{}
			note("arrival_admin_unknown")
		}
		arrivalInfo = info
	}()

	if req.WeatherCode != nil {
		weather = req.WeatherCode
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if code := s.gateway.CurrentWeather(ctx, req.Depart()); code != geodata.WeatherUnknown {
				mu.Lock()
				weather = &code
				mu.Unlock()
			} else {
				note("weather_unknown")
			}
		}()
	}

	wg.Wait()
	return departInfo, arrivalInfo, weather, degradations
}

// Estimate answers one fare query.
func (s *Service) Estimate(ctx context.Context, req *EstimateRequest) (*EstimateResult, error) {
	if req.Depart().Equal(req.Arrival()) {
		return nil, common.NewValidationError("depart and arrival must differ")
	}

	ctx, span := tracing.StartSpan(ctx, "estimate", "estimate.query")
	defer span.End()
	span.SetAttributes(tracing.LocationAttributes(req.Depart().Lat, req.Depart().Lon)...)

	departInfo, arrivalInfo, weather, degradations := s.resolveContext(ctx, req)

	facts, err := s.gateway.RouteFacts(ctx, req.Depart(), req.Arrival())
	if err != nil {
		if errors.Is(err, common.ErrNoRouteFound) {
			return nil, common.NewNoRouteError("no drivable route between depart and arrival")
		}
		return nil, common.NewInternalError("failed to resolve route", err)
	}
	if facts.Degraded {
		degradations = append(degradations, "haversine_distance")
	}
	span.SetAttributes(tracing.RouteAttributes(facts.DistanceM, facts.DurationS)...)

	timeOfDay := req.TimeOfDay
	if timeOfDay == "" {
		timeOfDay = corpus.TimeOfDayFor(s.now())
	}

	q := &Query{
		Depart:         req.Depart(),
		Arrival:        req.Arrival(),
		RouteDistanceM: facts.DistanceM,
		RouteDurationS: facts.DurationS,
		DurationKnown:  facts.DurationKnown,
		TimeOfDay:      timeOfDay,
		WeatherCode:    weather,
		ZoneType:       req.ZoneType,
		UserCongestion: req.UserCongestion,
	}

	candidates, err := s.filter.Candidates(ctx, departInfo, arrivalInfo)
	if err != nil {
		return nil, common.NewInternalError("failed to load candidate trips", err)
	}

	match := s.matcher.Match(ctx, q, candidates)
	degradations = append(degradations, match.Degradations...)

	result := &EstimateResult{
		Status:         match.Tier.Status(),
		Reliability:    match.Tier.Reliability(),
		RouteDistanceM: facts.DistanceM,
		TimeOfDay:      q.TimeOfDay,
		WeatherCode:    q.WeatherCode,
		Degradations:   degradations,
	}
	if facts.DurationKnown {
		result.RouteDurationS = facts.DurationS
	}

	switch match.Tier {
	case TierNarrow:
		s.buildNarrow(result, q, match)
	case TierWide:
		s.buildWide(ctx, result, q, match)
	case TierContextRelaxed:
		s.buildRelaxed(result, q, match)
	default:
		s.buildFallback(ctx, result, q, departInfo)
	}

	span.SetAttributes(tracing.EstimateAttributes(result.Status, int(result.PriceMean), result.TripsUsed)...)
	recordOutcome(match.Tier, result.TripsUsed)
	return result, nil
}

// buildNarrow reports the matched prices verbatim. Narrow matches carry
// the query's context, so scenarios shift the base prices directly.
func (s *Service) buildNarrow(result *EstimateResult, q *Query, match *MatchSet) {
	prices := make([]float64, len(match.Trips))
	for i, t := range match.Trips {
		prices[i] = t.PriceCFA
	}

	result.TripsUsed = len(match.Trips)
	result.PriceMean, result.PriceMin, result.PriceMax = priceStats(prices)
	result.Scenarios = s.adjuster.Scenarios(q, match.Trips, prices)
}

// buildWide prices every match through the geometric adjustment; scenarios
// reprice the adjusted values under the flipped context.
func (s *Service) buildWide(ctx context.Context, result *EstimateResult, q *Query, match *MatchSet) {
	adjustments, degraded := s.adjuster.AdjustWide(ctx, q, match.Trips)
	if degraded {
		result.Degradations = append(result.Degradations, "haversine_extra_distance")
	}

	rawByTrip := make(map[uuid.UUID]float64, len(adjustments))
	prices := make([]float64, len(adjustments))
	for i, adj := range adjustments {
		rawByTrip[adj.TripID] = adj.BasePrice + adj.TotalAdjustment
		prices[i] = adj.AdjustedPrice
	}

	raw := make([]float64, len(match.Trips))
	for i, t := range match.Trips {
		raw[i] = rawByTrip[t.ID]
	}

	result.TripsUsed = len(match.Trips)
	result.Adjustments = adjustments
	result.PriceMean, result.PriceMin, result.PriceMax = priceStats(prices)
	result.Scenarios = s.adjuster.Scenarios(q, match.Trips, raw)
}

// buildRelaxed prices every match through the context adjustment. Scenario
// repricing starts from the base prices again: the shift from each trip's
// recorded context to the scenario context replaces, not compounds, the
// primary shift.
func (s *Service) buildRelaxed(result *EstimateResult, q *Query, match *MatchSet) {
	adjustments := s.adjuster.AdjustContext(q, match.Trips)

	prices := make([]float64, len(adjustments))
	for i, adj := range adjustments {
		prices[i] = adj.AdjustedPrice
	}

	base := make([]float64, len(match.Trips))
	for i, t := range match.Trips {
		base[i] = t.PriceCFA
	}

	result.TripsUsed = len(match.Trips)
	result.Adjustments = adjustments
	result.PriceMean, result.PriceMin, result.PriceMax = priceStats(prices)
	result.Scenarios = s.adjuster.Scenarios(q, match.Trips, base)
}

// buildFallback blends the four heuristics and recomputes the blend under
// each flipped context for the scenarios.
func (s *Service) buildFallback(ctx context.Context, result *EstimateResult, q *Query, departInfo *geodata.AdministrativeInfo) {
	area := s.filter.areaFor(departInfo)

	price, breakdown := s.fallback.Estimate(ctx, q, area)
	result.PriceMean = price
	result.PriceMin = price
	result.PriceMax = price
	result.Fallback = breakdown

	if q.WeatherCode != nil {
		opposite := OppositeWeather(*q.WeatherCode)
		scenarioQuery := *q
		scenarioQuery.WeatherCode = &opposite
		scenarioPrice, _ := s.fallback.Estimate(ctx, &scenarioQuery, area)
		result.Scenarios.OppositeWeather = &scenarioPrice
	}
	if q.TimeOfDay != "" {
		scenarioQuery := *q
		scenarioQuery.TimeOfDay = corpus.OppositeTimeOfDay(q.TimeOfDay)
		scenarioPrice, _ := s.fallback.Estimate(ctx, &scenarioQuery, area)
		result.Scenarios.OppositeTimeOfDay = &scenarioPrice
	}
}

// priceStats returns the snapped mean and the min/max of already-snapped
// prices.
func priceStats(prices []float64) (mean, min, max float64) {
	if len(prices) == 0 {
		return 0, 0, 0
	}
	sum := 0.0
	min, max = prices[0], prices[0]
	for _, p := range prices {
		sum += p
		if p < min {
			min = p
		}
		if p > max {
			max = p
		}
	}
	return SnapToBand(sum / float64(len(prices))), SnapToBand(min), SnapToBand(max)
}
