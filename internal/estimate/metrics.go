package estimate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	estimatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "estimate_outcomes_total",
		Help: "Fare estimates served, by resulting match tier",
	}, []string{"tier"})

	tripsUsedHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "estimate_trips_used",
		Help:    "Number of historical trips behind each served estimate",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
	})
)

func recordOutcome(tier MatchTier, tripsUsed int) {
	estimatesTotal.WithLabelValues(tier.Status()).Inc()
	tripsUsedHistogram.Observe(float64(tripsUsed))
}
