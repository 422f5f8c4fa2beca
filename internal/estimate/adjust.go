package estimate

import (
	"context"
	"sort"

	"github.com/camroute/fare-engine/internal/corpus"
	"github.com/camroute/fare-engine/pkg/config"
	"github.com/camroute/fare-engine/pkg/geo"
)

// MatrixProvider supplies batched routed distances from one source to many
// destinations.
type MatrixProvider interface {
	DistanceMatrix(ctx context.Context, source geo.Coordinate, destinations []geo.Coordinate) ([]float64, bool)
}

// Adjuster converts geometric and contextual deltas between the query and a
// matched trip into price deltas.
type Adjuster struct {
	matrix MatrixProvider
	cfg    *config.EstimatorConfig
}

// NewAdjuster creates an adjustment calculator.
func NewAdjuster(matrix MatrixProvider, cfg *config.EstimatorConfig) *Adjuster {
	return &Adjuster{matrix: matrix, cfg: cfg}
}

// AdjustWide prices each wide-tier match against the query. Extra distance
// is the routed depart-to-depart plus arrival-to-arrival gap, fetched in
// two batched matrix calls. The returned adjustments are sorted by total
// adjustment ascending, closest first; the second return reports whether
// any distance was substituted with a great-circle value.
func (a *Adjuster) AdjustWide(ctx context.Context, q *Query, trips []*corpus.Trip) ([]TripAdjustment, bool) {
	departDests := make([]geo.Coordinate, len(trips))
	arrivalDests := make([]geo.Coordinate, len(trips))
	for i, t := range trips {
		departDests[i] = t.Depart.Coordinate()
		arrivalDests[i] = t.Arrival.Coordinate()
	}

	departDistances, departDegraded := a.matrix.DistanceMatrix(ctx, q.Depart, departDests)
	arrivalDistances, arrivalDegraded := a.matrix.DistanceMatrix(ctx, q.Arrival, arrivalDests)

	adjustments := make([]TripAdjustment, len(trips))
	for i, t := range trips {
		extraM := departDistances[i] + arrivalDistances[i]
		distanceSurcharge := extraM / 1000 * a.cfg.RatePerKm

		sinuositySurcharge := 0.0
		if t.Sinuosity != nil && *t.Sinuosity > a.cfg.SinuosityThreshold {
			sinuositySurcharge = a.cfg.SinuositySurcharge
		}

		congestionPct := 0.0
		if q.UserCongestion != nil && t.PlatformCongestion != nil {
			gap := float64(*q.UserCongestion)*10 - *t.PlatformCongestion
			if gap > a.cfg.CongestionDeltaMin {
				congestionPct = a.cfg.CongestionStepPct
			}
		}

		adjusted := (t.PriceCFA + distanceSurcharge + sinuositySurcharge) * (1 + congestionPct/100)

		adjustments[i] = TripAdjustment{
			TripID:             t.ID,
			BasePrice:          t.PriceCFA,
			ExtraDistanceM:     extraM,
			DistanceSurcharge:  distanceSurcharge,
			SinuositySurcharge: sinuositySurcharge,
			CongestionPct:      congestionPct,
			AdjustedPrice:      SnapToBand(adjusted),
			TotalAdjustment:    adjusted - t.PriceCFA,
		}
	}

	sort.SliceStable(adjustments, func(i, j int) bool {
		return adjustments[i].TotalAdjustment < adjustments[j].TotalAdjustment
	})

	return adjustments, departDegraded || arrivalDegraded
}

// contextShift reprices a single price from a recorded context to a target
// one: an additive surcharge crossing into night (discount crossing out),
// then a multiplicative step per unit of drier-to-wetter weather mismatch
// (discount when the target is drier). Unknown dimensions on either side
// shift nothing.
func (a *Adjuster) contextShift(price float64, sourceTime string, sourceWeather *int, targetTime string, targetWeather *int) float64 {
	shifted := price

	if sourceTime != "" && targetTime != "" {
		sourceNight := sourceTime == corpus.TimeNight
		targetNight := targetTime == corpus.TimeNight
		if targetNight && !sourceNight {
			shifted += a.cfg.NightSurcharge
		} else if !targetNight && sourceNight {
			shifted -= a.cfg.NightSurcharge
		}
	}

	if sourceWeather != nil && targetWeather != nil && *sourceWeather != *targetWeather {
		delta := float64(*targetWeather - *sourceWeather)
		shifted *= 1 + a.cfg.WeatherStepPct/100*delta
	}

	return shifted
}

// AdjustContext prices each trip for the query's context via contextShift.
// Sorted like AdjustWide.
func (a *Adjuster) AdjustContext(q *Query, trips []*corpus.Trip) []TripAdjustment {
	adjustments := make([]TripAdjustment, len(trips))
	for i, t := range trips {
		adjusted := a.contextShift(t.PriceCFA, t.TimeOfDay, t.WeatherCode, q.TimeOfDay, q.WeatherCode)

		adjustments[i] = TripAdjustment{
			TripID:           t.ID,
			BasePrice:        t.PriceCFA,
			ContextSurcharge: adjusted - t.PriceCFA,
			AdjustedPrice:    SnapToBand(adjusted),
			TotalAdjustment:  adjusted - t.PriceCFA,
		}
	}

	sort.SliceStable(adjustments, func(i, j int) bool {
		return adjustments[i].TotalAdjustment < adjustments[j].TotalAdjustment
	})

	return adjustments
}
