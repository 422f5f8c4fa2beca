package estimate

import (
	"github.com/google/uuid"

	"github.com/camroute/fare-engine/internal/corpus"
	"github.com/camroute/fare-engine/pkg/config"
	"github.com/camroute/fare-engine/pkg/geo"
)

func testConfig() *config.EstimatorConfig {
	return &config.EstimatorConfig{
		NarrowIsochroneMinutes: 2,
		WideIsochroneMinutes:   5,
		NarrowFallbackRadiusM:  50,
		WideFallbackRadiusM:    150,
		DistanceTolerancePct:   10,
		DistrictFallback:       true,

		RatePerKm:          100,
		CongestionDeltaMin: 20,
		CongestionStepPct:  10,
		SinuosityThreshold: 1.5,
		SinuositySurcharge: 25,

		NightSurcharge: 50,
		WeatherStepPct: 10,

		DayTariff:   300,
		NightTariff: 350,
		BlendWeights: config.BlendWeights{
			Distance:   0.30,
			Zone:       0.25,
			Tariff:     0.15,
			Classifier: 0.30,
		},
		MinCorpusSize: 100,
	}
}

// Shared endpoints around Yaoundé. Offsets of 0.0003 degrees latitude stay
// inside a 50 m radius, 0.0010 inside 150 m.
var (
	departA  = geo.Coordinate{Lat: 3.8600, Lon: 11.5000}
	arrivalA = geo.Coordinate{Lat: 3.8900, Lon: 11.5300}
)

func offset(c geo.Coordinate, dLat float64) geo.Coordinate {
	return geo.Coordinate{Lat: c.Lat + dLat, Lon: c.Lon}
}

func intPtr(v int) *int { return &v }

func float64Ptr(v float64) *float64 { return &v }

type tripOption func(*corpus.Trip)

func withContext(timeOfDay string, weather int) tripOption {
	return func(t *corpus.Trip) {
		t.TimeOfDay = timeOfDay
		t.WeatherCode = intPtr(weather)
	}
}

func withSinuosity(s float64) tripOption {
	return func(t *corpus.Trip) { t.Sinuosity = float64Ptr(s) }
}

func withPlatformCongestion(c float64) tripOption {
	return func(t *corpus.Trip) { t.PlatformCongestion = float64Ptr(c) }
}

func makeTrip(depart, arrival geo.Coordinate, distanceM, price float64, opts ...tripOption) *corpus.Trip {
	t := &corpus.Trip{
		ID:        uuid.New(),
		DistanceM: distanceM,
		PriceCFA:  price,
		Depart: &corpus.Point{
			ID:        uuid.New(),
			Latitude:  depart.Lat,
			Longitude: depart.Lon,
		},
		Arrival: &corpus.Point{
			ID:        uuid.New(),
			Latitude:  arrival.Lat,
			Longitude: arrival.Lon,
		},
	}
	t.DepartID = t.Depart.ID
	t.ArrivalID = t.Arrival.ID
	for _, opt := range opts {
		opt(t)
	}
	return t
}
