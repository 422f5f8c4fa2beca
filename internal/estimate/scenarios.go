package estimate

import (
	"github.com/camroute/fare-engine/internal/corpus"
)

// oppositeWeather maps each weather code to its what-if counterpart: clear
// flips to heavy rain, light rain to storm, and back.
var oppositeWeather = [4]int{2, 3, 0, 1}

// OppositeWeather returns the flipped weather code; out-of-range codes
// flip to themselves.
func OppositeWeather(code int) int {
	if code < 0 || code >= len(oppositeWeather) {
		return code
	}
	return oppositeWeather[code]
}

// meanShifted reprices each trip's primary price from the trip's recorded
// context to the target context and returns the snapped mean. A trip whose
// recorded context already equals the target keeps its primary price.
func (a *Adjuster) meanShifted(trips []*corpus.Trip, primary []float64, targetTime string, targetWeather *int) float64 {
	sum := 0.0
	for i, t := range trips {
		sum += a.contextShift(primary[i], t.TimeOfDay, t.WeatherCode, targetTime, targetWeather)
	}
	return SnapToBand(sum / float64(len(trips)))
}

// Scenarios computes the what-if prices for a matched set: the primary
// per-trip prices repriced under the opposite weather and under the
// opposite time-of-day. Dimensions the query never specified produce no
// scenario.
func (a *Adjuster) Scenarios(q *Query, trips []*corpus.Trip, primary []float64) ScenarioPrices {
	var scenarios ScenarioPrices
	if len(trips) == 0 || len(primary) != len(trips) {
		return scenarios
	}

	if q.WeatherCode != nil {
		opposite := OppositeWeather(*q.WeatherCode)
		price := a.meanShifted(trips, primary, q.TimeOfDay, &opposite)
		scenarios.OppositeWeather = &price
	}

	if q.TimeOfDay != "" {
		price := a.meanShifted(trips, primary, corpus.OppositeTimeOfDay(q.TimeOfDay), q.WeatherCode)
		scenarios.OppositeTimeOfDay = &price
	}

	return scenarios
}
