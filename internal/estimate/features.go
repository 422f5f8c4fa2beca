package estimate

import (
	"github.com/camroute/fare-engine/internal/corpus"
)

// Features is the fixed vector the band classifier consumes. Order matters:
// the trained artifact's weights are positional.
type Features struct {
	DistanceKm         float64
	TimeOrdinal        float64
	WeatherCode        float64
	ZoneType           float64
	Congestion         float64 // 0-100 platform scale
	Sinuosity          float64
	TurnCount          float64
	DistanceCongestion float64 // interaction term
}

// FeatureCount is the vector length the artifact must match.
const FeatureCount = 8

// Vector returns the features in artifact order.
func (f Features) Vector() [FeatureCount]float64 {
	return [FeatureCount]float64{
		f.DistanceKm,
		f.TimeOrdinal,
		f.WeatherCode,
		f.ZoneType,
		f.Congestion,
		f.Sinuosity,
		f.TurnCount,
		f.DistanceCongestion,
	}
}

// Defaults applied when a dimension is unknown. Congestion sits mid-scale,
// sinuosity at the straight-road floor, and turn count scales with distance
// the way typical urban routes do.
const (
	defaultCongestion = 50.0
	sinuosityFloor    = 1.0
	sinuosityCeil     = 3.0
	turnsPerKm        = 2.0
	maxTurnCount      = 100.0
)

func timeOrdinal(bucket string) float64 {
	switch bucket {
	case corpus.TimeAfternoon:
		return 1
	case corpus.TimeEvening:
		return 2
	case corpus.TimeNight:
		return 3
	default:
		return 0
	}
}

// BuildFeatures assembles the classifier input for a query, defaulting the
// unknown dimensions.
func BuildFeatures(q *Query) Features {
	distanceKm := q.RouteDistanceM / 1000.0

	weather := 0.0
	if q.WeatherCode != nil {
		weather = float64(*q.WeatherCode)
	}

	zone := 0.0
	if q.ZoneType != nil {
		zone = float64(*q.ZoneType)
	}

	congestion := defaultCongestion
	if q.UserCongestion != nil {
		congestion = float64(*q.UserCongestion) * 10
	}

	sinuosity := sinuosityFloor

	turns := distanceKm * turnsPerKm
	if turns > maxTurnCount {
		turns = maxTurnCount
	}

	return Features{
		DistanceKm:         distanceKm,
		TimeOrdinal:        timeOrdinal(q.TimeOfDay),
		WeatherCode:        weather,
		ZoneType:           zone,
		Congestion:         congestion,
		Sinuosity:          clampSinuosity(sinuosity),
		TurnCount:          turns,
		DistanceCongestion: distanceKm * congestion,
	}
}

func clampSinuosity(s float64) float64 {
	if s < sinuosityFloor {
		return sinuosityFloor
	}
	if s > sinuosityCeil {
		return sinuosityCeil
	}
	return s
}
