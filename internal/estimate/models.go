package estimate

import (
	"github.com/google/uuid"

	"github.com/camroute/fare-engine/internal/corpus"
	"github.com/camroute/fare-engine/pkg/geo"
)

// MatchTier is the outcome of the tiered similarity search.
type MatchTier int

const (
	TierNone MatchTier = iota
	TierNarrow
	TierWide
	TierContextRelaxed
)

// Reliability returns the fixed confidence score for the tier. The fallback
// path reports 0.50.
func (t MatchTier) Reliability() float64 {
	switch t {
	case TierNarrow:
		return 0.93
	case TierWide:
		return 0.78
	case TierContextRelaxed:
		return 0.68
	default:
		return 0.50
	}
}

// Status is the wire name of the tier.
func (t MatchTier) Status() string {
	switch t {
	case TierNarrow:
		return "exact"
	case TierWide:
		return "similar"
	case TierContextRelaxed:
		return "similar-relaxed"
	default:
		return "unknown"
	}
}

// EstimateRequest is the inbound estimate query. Context fields are
// optional; weather is resolved live when omitted.
type EstimateRequest struct {
	DepartLatitude   float64 `json:"depart_latitude" binding:"latitude"`
	DepartLongitude  float64 `json:"depart_longitude" binding:"longitude"`
	ArrivalLatitude  float64 `json:"arrival_latitude" binding:"latitude"`
	ArrivalLongitude float64 `json:"arrival_longitude" binding:"longitude"`

	TimeOfDay      string `json:"time_of_day,omitempty" binding:"omitempty,day_moment"`
	WeatherCode    *int   `json:"weather_code,omitempty" binding:"omitempty,weather_code"`
	ZoneType       *int   `json:"zone_type,omitempty" binding:"omitempty,min=0,max=2"`
	UserCongestion *int   `json:"user_congestion,omitempty" binding:"omitempty,min=1,max=10"`
}

// Depart returns the depart coordinate.
func (r *EstimateRequest) Depart() geo.Coordinate {
	return geo.Coordinate{Lat: r.DepartLatitude, Lon: r.DepartLongitude}
}

// Arrival returns the arrival coordinate.
func (r *EstimateRequest) Arrival() geo.Coordinate {
	return geo.Coordinate{Lat: r.ArrivalLatitude, Lon: r.ArrivalLongitude}
}

// Query is the resolved estimation context the engine works from: validated
// coordinates, routed facts, and the context dimensions after defaulting.
type Query struct {
	Depart  geo.Coordinate
	Arrival geo.Coordinate

	RouteDistanceM float64
	RouteDurationS float64
	DurationKnown  bool

	TimeOfDay      string
	WeatherCode    *int
	ZoneType       *int
	UserCongestion *int
}

// MatchSet is the result of one similarity search: the tier that matched
// and the trips in it. Degradations record which region substitutions
// happened on the way.
type MatchSet struct {
	Tier         MatchTier
	Trips        []*corpus.Trip
	Degradations []string
}

// TripAdjustment is the per-trip breakdown of a wide or context-relaxed
// adjustment, surfaced for diagnostics.
type TripAdjustment struct {
	TripID             uuid.UUID `json:"trip_id"`
	BasePrice          float64   `json:"base_price"`
	ExtraDistanceM     float64   `json:"extra_distance_m,omitempty"`
	DistanceSurcharge  float64   `json:"distance_surcharge,omitempty"`
	SinuositySurcharge float64   `json:"sinuosity_surcharge,omitempty"`
	CongestionPct      float64   `json:"congestion_pct,omitempty"`
	ContextSurcharge   float64   `json:"context_surcharge,omitempty"`
	AdjustedPrice      float64   `json:"adjusted_price"`
	TotalAdjustment    float64   `json:"total_adjustment"`
}

// FallbackBreakdown carries the four sub-estimates behind an unknown-status
// result. A nil sub-estimate means its input was unavailable. Degraded marks
// the tariff-only path taken when the classifier has no trained artifact.
type FallbackBreakdown struct {
	DistanceBased *float64 `json:"distance_based,omitempty"`
	ZoneBased     *float64 `json:"zone_based,omitempty"`
	Tariff        float64  `json:"tariff"`
	Classifier    *float64 `json:"classifier,omitempty"`
	Degraded      bool     `json:"degraded,omitempty"`
}

// ScenarioPrices are the what-if recomputations under flipped context.
type ScenarioPrices struct {
	OppositeWeather   *float64 `json:"opposite_weather,omitempty"`
	OppositeTimeOfDay *float64 `json:"opposite_time_of_day,omitempty"`
}

// EstimateResult is the engine's answer.
type EstimateResult struct {
	Status      string  `json:"status"`
	PriceMean   float64 `json:"price_mean"`
	PriceMin    float64 `json:"price_min"`
	PriceMax    float64 `json:"price_max"`
	Reliability float64 `json:"reliability"`
	TripsUsed   int     `json:"trips_used"`

	RouteDistanceM float64 `json:"route_distance_m"`
	RouteDurationS float64 `json:"route_duration_s,omitempty"`

	TimeOfDay   string `json:"time_of_day"`
	WeatherCode *int   `json:"weather_code,omitempty"`

	Adjustments []TripAdjustment   `json:"adjustments,omitempty"`
	Fallback    *FallbackBreakdown `json:"fallback,omitempty"`
	Scenarios   ScenarioPrices     `json:"scenarios"`

	// Degradations lists the fallback substitutions taken while answering
	// (haversine distance, circle region, unknown weather).
	Degradations []string `json:"degradations,omitempty"`
}
