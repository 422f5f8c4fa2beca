package estimate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/camroute/fare-engine/internal/corpus"
)

func TestBuildFeatures_Defaults(t *testing.T) {
	q := &Query{RouteDistanceM: 4000}

	f := BuildFeatures(q)

	assert.Equal(t, 4.0, f.DistanceKm)
	assert.Equal(t, 0.0, f.TimeOrdinal)
	assert.Equal(t, 0.0, f.WeatherCode)
	assert.Equal(t, 0.0, f.ZoneType)
	assert.Equal(t, 50.0, f.Congestion)
	assert.Equal(t, 1.0, f.Sinuosity)
	assert.Equal(t, 8.0, f.TurnCount)
	assert.Equal(t, 200.0, f.DistanceCongestion)
}

func TestBuildFeatures_SpecifiedContext(t *testing.T) {
	q := &Query{
		RouteDistanceM: 6000,
		TimeOfDay:      corpus.TimeNight,
		WeatherCode:    intPtr(2),
		ZoneType:       intPtr(1),
		UserCongestion: intPtr(8),
	}

	f := BuildFeatures(q)

	assert.Equal(t, 6.0, f.DistanceKm)
	assert.Equal(t, 3.0, f.TimeOrdinal)
	assert.Equal(t, 2.0, f.WeatherCode)
	assert.Equal(t, 1.0, f.ZoneType)
	assert.Equal(t, 80.0, f.Congestion)
	assert.Equal(t, 480.0, f.DistanceCongestion)
}

func TestBuildFeatures_TurnCountCapped(t *testing.T) {
	q := &Query{RouteDistanceM: 80000}

	f := BuildFeatures(q)

	assert.Equal(t, 100.0, f.TurnCount)
}

func TestTimeOrdinal(t *testing.T) {
	assert.Equal(t, 0.0, timeOrdinal(corpus.TimeMorning))
	assert.Equal(t, 1.0, timeOrdinal(corpus.TimeAfternoon))
	assert.Equal(t, 2.0, timeOrdinal(corpus.TimeEvening))
	assert.Equal(t, 3.0, timeOrdinal(corpus.TimeNight))
	assert.Equal(t, 0.0, timeOrdinal(""))
}

func TestFeatures_VectorOrder(t *testing.T) {
	f := Features{
		DistanceKm:         1,
		TimeOrdinal:        2,
		WeatherCode:        3,
		ZoneType:           4,
		Congestion:         5,
		Sinuosity:          6,
		TurnCount:          7,
		DistanceCongestion: 8,
	}

	assert.Equal(t, [FeatureCount]float64{1, 2, 3, 4, 5, 6, 7, 8}, f.Vector())
}
