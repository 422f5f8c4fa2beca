package corpus

import (
	"time"

	"github.com/google/uuid"

	"github.com/camroute/fare-engine/pkg/geo"
)

// Time-of-day buckets. Morning 06:00-12:00, afternoon 12:00-17:00,
// evening 17:00-19:30, night otherwise.
const (
	TimeMorning   = "morning"
	TimeAfternoon = "afternoon"
	TimeEvening   = "evening"
	TimeNight     = "night"
)

// TimeOfDayFor buckets a local timestamp.
func TimeOfDayFor(t time.Time) string {
	minutes := t.Hour()*60 + t.Minute()
	switch {
	case minutes >= 6*60 && minutes < 12*60:
		return TimeMorning
	case minutes >= 12*60 && minutes < 17*60:
		return TimeAfternoon
	case minutes >= 17*60 && minutes < 19*60+30:
		return TimeEvening
	default:
		return TimeNight
	}
}

// OppositeTimeOfDay maps each bucket to its what-if counterpart: the two
// daylight buckets flip to night and night flips to morning.
func OppositeTimeOfDay(bucket string) string {
	switch bucket {
	case TimeMorning, TimeAfternoon, TimeEvening:
		return TimeNight
	case TimeNight:
		return TimeMorning
	default:
		return ""
	}
}

// Zone types recorded on contributed trips.
const (
	ZoneUrban = 0
	ZoneMixed = 1
	ZoneRural = 2
)

// Point is a trip endpoint with its administrative context. Points are
// append-only: admin fields are enriched when a later contribution knows
// more, never overwritten with less.
type Point struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Label        string    `json:"label" db:"label"`
	Latitude     float64   `json:"latitude" db:"latitude"`
	Longitude    float64   `json:"longitude" db:"longitude"`
	Neighborhood string    `json:"neighborhood,omitempty" db:"neighborhood"`
	City         string    `json:"city,omitempty" db:"city"`
	District     string    `json:"district,omitempty" db:"district"`
	Department   string    `json:"department,omitempty" db:"department"`
	H3Cell       string    `json:"h3_cell,omitempty" db:"h3_cell"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Coordinate returns the point location as a value coordinate.
func (p *Point) Coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: p.Latitude, Lon: p.Longitude}
}

// Trip is one community-contributed journey. Distance is the routed distance in
// meters and the price is an exact amount a passenger actually paid, always
// one of the recognised price bands. The enrichment fields are optional:
// they are computed at ingestion when the route provider cooperates and
// skipped otherwise.
type Trip struct {
	ID        uuid.UUID `json:"id" db:"id"`
	DepartID  uuid.UUID `json:"depart_id" db:"depart_id"`
	ArrivalID uuid.UUID `json:"arrival_id" db:"arrival_id"`

	Depart  *Point `json:"depart,omitempty" db:"-"`
	Arrival *Point `json:"arrival,omitempty" db:"-"`

	DistanceM float64 `json:"distance_m" db:"distance_m"`
	PriceCFA  float64 `json:"price_cfa" db:"price_cfa"`

	// Context. Empty / nil means unknown.
	TimeOfDay   string `json:"time_of_day,omitempty" db:"time_of_day"`
	WeatherCode *int   `json:"weather_code,omitempty" db:"weather_code"`
	ZoneType    *int   `json:"zone_type,omitempty" db:"zone_type"`

	// Enrichment.
	UserCongestion     *int     `json:"user_congestion,omitempty" db:"user_congestion"`         // 1-10 passenger rating
	PlatformCongestion *float64 `json:"platform_congestion,omitempty" db:"platform_congestion"` // 0-100 from route annotations
	Sinuosity          *float64 `json:"sinuosity,omitempty" db:"sinuosity"`                     // routed / great-circle, >= 1.0
	TurnCount          *int     `json:"turn_count,omitempty" db:"turn_count"`
	TurnForce          *float64 `json:"turn_force,omitempty" db:"turn_force"`
	RoadClass          string   `json:"road_class,omitempty" db:"road_class"`
	DurationS          *float64 `json:"duration_s,omitempty" db:"duration_s"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// HasContext reports whether the trip carries both context dimensions used
// by the exact-context tiers.
func (t *Trip) HasContext() bool {
	return t.TimeOfDay != "" && t.WeatherCode != nil
}

// AreaRef identifies an administrative search area. Neighborhood wins when
// known; district is the coarser fallback. City is carried for the zone
// price aggregate only: a whole city is too coarse to filter similarity
// candidates.
type AreaRef struct {
	Neighborhood string
	District     string
	City         string
}

// Empty reports whether the reference carries no area usable for candidate
// filtering.
func (a AreaRef) Empty() bool {
	return a.Neighborhood == "" && a.District == ""
}

// AreaStat is one row of the per-area corpus aggregate.
type AreaStat struct {
	Neighborhood string  `json:"neighborhood"`
	City         string  `json:"city,omitempty"`
	TripCount    int64   `json:"trip_count"`
	MeanPriceCFA float64 `json:"mean_price_cfa"`
}

// Stats is the corpus-wide aggregate snapshot exposed by the stats endpoint
// and consumed by the fallback estimator.
type Stats struct {
	TripCount     int64      `json:"trip_count"`
	PointCount    int64      `json:"point_count"`
	AvgPricePerKm float64    `json:"avg_price_per_km"`
	TopAreas      []AreaStat `json:"top_areas,omitempty"`
	ComputedAt    time.Time  `json:"computed_at"`
}
