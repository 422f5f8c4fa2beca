package geodata

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var gatewayFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "geodata_gateway_fallbacks_total",
	Help: "Degraded substitutions per gateway operation (circle, haversine, unknown weather)",
}, []string{"operation"})

func recordFallback(operation string) {
	gatewayFallbacksTotal.WithLabelValues(operation).Inc()
}
