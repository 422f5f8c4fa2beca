package geodata

import (
	"context"
	"errors"
	"time"

	"github.com/camroute/fare-engine/pkg/async"
	"github.com/camroute/fare-engine/pkg/cache"
	"github.com/camroute/fare-engine/pkg/common"
	"github.com/camroute/fare-engine/pkg/config"
	"github.com/camroute/fare-engine/pkg/geo"
	"github.com/camroute/fare-engine/pkg/logger"
	"github.com/camroute/fare-engine/pkg/resilience"
	"github.com/camroute/fare-engine/pkg/tracing"
	"go.uber.org/zap"
)

// RoutingProvider is the routing/geocoding capability the gateway fronts.
type RoutingProvider interface {
	Directions(ctx context.Context, from, to geo.Coordinate) (*Route, error)
	Matrix(ctx context.Context, source geo.Coordinate, destinations []geo.Coordinate) (*Matrix, error)
	Isochrone(ctx context.Context, center geo.Coordinate, minutes int) (geo.PolygonRegion, error)
	ReverseGeocode(ctx context.Context, c geo.Coordinate) (*AdministrativeInfo, error)
}

// WeatherProvider is the weather capability the gateway fronts.
type WeatherProvider interface {
	CurrentWeatherCode(ctx context.Context, c geo.Coordinate) (int, error)
}

// Gateway is the cached facade over the external geo capabilities. Each
// operation carries its own TTL and its own documented degradation: unknown
// administrative fields, a circle instead of an isochrone, haversine instead
// of a routed distance, unknown weather. Only a provider-confirmed absence of
// any route is fatal.
type Gateway struct {
	routing RoutingProvider
	weather WeatherProvider
	cache   *cache.Manager

	routingBreaker *resilience.CircuitBreaker
	weatherBreaker *resilience.CircuitBreaker

	callTimeout time.Duration
}

// NewGateway wires the providers behind per-provider circuit breakers.
func NewGateway(routing RoutingProvider, weather WeatherProvider, cacheManager *cache.Manager, cfg *config.Config) *Gateway {
	g := &Gateway{
		routing:     routing,
		weather:     weather,
		cache:       cacheManager,
		callTimeout: time.Duration(cfg.Estimator.ExternalTimeoutSeconds) * time.Second,
	}

	if cfg.Resilience.CircuitBreaker.Enabled {
		routingSettings := cfg.Resilience.CircuitBreaker.SettingsFor("mapbox")
		g.routingBreaker = resilience.NewCircuitBreaker(resilience.BuildSettings(
			"mapbox",
			routingSettings.IntervalSeconds,
			routingSettings.TimeoutSeconds,
			routingSettings.FailureThreshold,
			routingSettings.SuccessThreshold,
		), nil)

		weatherSettings := cfg.Resilience.CircuitBreaker.SettingsFor("openmeteo")
		g.weatherBreaker = resilience.NewCircuitBreaker(resilience.BuildSettings(
			"openmeteo",
			weatherSettings.IntervalSeconds,
			weatherSettings.TimeoutSeconds,
			weatherSettings.FailureThreshold,
			weatherSettings.SuccessThreshold,
		), nil)
	}

	return g
}

func (g *Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.callTimeout)
}

func (g *Gateway) cacheAsync(ctx context.Context, task, key string, value interface{}, ttl time.Duration) {
	async.Go(ctx, task, func(ctx context.Context) {
		if err := g.cache.Set(ctx, key, value, ttl); err != nil {
			logger.WarnContext(ctx, "cache write failed",
				zap.String("key", key), zap.Error(err))
		}
	})
}

// ReverseGeocode resolves administrative context, cached for 24h. The error
// is surfaced so the caller can proceed with unknown administrative fields;
// it must never abort an estimate.
func (g *Gateway) ReverseGeocode(ctx context.Context, c geo.Coordinate) (*AdministrativeInfo, error) {
	key := cache.Keys.ReverseGeocode(c)

	var info AdministrativeInfo
	if err := g.cache.Get(ctx, key, &info); err == nil {
		return &info, nil
	}

	callCtx, cancel := g.withTimeout(ctx)
	defer cancel()

	result, err := g.execRouting(callCtx, "reverse_geocode", func(ctx context.Context) (interface{}, error) {
		return g.routing.ReverseGeocode(ctx, c)
	})
	if err != nil {
		recordFallback("reverse_geocode")
		return nil, errors.Join(common.ErrServiceDegraded, err)
	}

	resolved := result.(*AdministrativeInfo)
	g.cacheAsync(ctx, "cache-geocode", key, resolved, cache.TTL.Geocode())
	return resolved, nil
}

// RouteFacts returns the routed distance and duration between two points,
// cached for 1h. Provider failure degrades to great-circle distance with the
// duration marked unknown. A confirmed NoRoute is returned as an error.
func (g *Gateway) RouteFacts(ctx context.Context, from, to geo.Coordinate) (RouteFacts, error) {
	key := cache.Keys.Route(from, to)

	var facts RouteFacts
	if err := g.cache.Get(ctx, key, &facts); err == nil {
		return facts, nil
	}

	callCtx, cancel := g.withTimeout(ctx)
	defer cancel()

	result, err := g.execRouting(callCtx, "directions", func(ctx context.Context) (interface{}, error) {
		return g.routing.Directions(ctx, from, to)
	})
	if err != nil {
		if errors.Is(err, common.ErrNoRouteFound) {
			return RouteFacts{}, err
		}
		recordFallback("route")
		logger.WarnContext(ctx, "routing degraded, substituting haversine", zap.Error(err))
		distance := geo.HaversineMeters(from, to)
		return RouteFacts{
			DistanceM:     distance,
			DurationS:     geo.EstimateDurationSeconds(distance),
			DurationKnown: false,
			Degraded:      true,
		}, nil
	}

	route := result.(*Route)
	facts = RouteFacts{
		DistanceM:     route.DistanceM,
		DurationS:     route.DurationS,
		DurationKnown: true,
	}
	g.cacheAsync(ctx, "cache-route", key, facts, cache.TTL.Route())
	return facts, nil
}

// DetailedRoute returns the full route with steps and congestion annotations
// for the trip enrichment path. No degradation applies: enrichment fields
// are optional and the caller simply skips them on error.
func (g *Gateway) DetailedRoute(ctx context.Context, from, to geo.Coordinate) (*Route, error) {
	callCtx, cancel := g.withTimeout(ctx)
	defer cancel()

	result, err := g.execRouting(callCtx, "directions", func(ctx context.Context) (interface{}, error) {
		return g.routing.Directions(ctx, from, to)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Route), nil
}

// matrixBatchSize leaves one slot for the source coordinate.
const matrixBatchSize = maxMatrixCoordinates - 1

// DistanceMatrix returns routed distances from one source to each
// destination, batching the provider calls. Pairs the provider cannot route
// are substituted with great-circle distances; the second return reports
// whether any substitution happened.
func (g *Gateway) DistanceMatrix(ctx context.Context, source geo.Coordinate, destinations []geo.Coordinate) ([]float64, bool) {
	distances := make([]float64, len(destinations))
	degraded := false

	for start := 0; start < len(destinations); start += matrixBatchSize {
		end := start + matrixBatchSize
		if end > len(destinations) {
			end = len(destinations)
		}
		batch := destinations[start:end]

		callCtx, cancel := g.withTimeout(ctx)
		result, err := g.execRouting(callCtx, "matrix", func(ctx context.Context) (interface{}, error) {
			return g.routing.Matrix(ctx, source, batch)
		})
		cancel()

		if err != nil {
			recordFallback("matrix")
			logger.WarnContext(ctx, "distance matrix degraded, substituting haversine",
				zap.Int("batch_size", len(batch)), zap.Error(err))
			degraded = true
			for i, dest := range batch {
				distances[start+i] = geo.HaversineMeters(source, dest)
			}
			continue
		}

		matrix := result.(*Matrix)
		for i, dest := range batch {
			d := 0.0
			if i < len(matrix.DistancesM) {
				d = matrix.DistancesM[i]
			}
			if d <= 0 && !source.Equal(dest) {
				// Unroutable pair inside an otherwise healthy response
				degraded = true
				d = geo.HaversineMeters(source, dest)
			}
			distances[start+i] = d
		}
	}

	return distances, degraded
}

// RegionAround returns the isochrone polygon reachable within the given
// minutes, cached for 24h, or a fixed-radius circle when isochrone
// generation is unavailable. The circle is a documented substitute, never an
// error.
func (g *Gateway) RegionAround(ctx context.Context, center geo.Coordinate, minutes int, fallbackRadiusM float64) RegionResult {
	key := cache.Keys.Isochrone(center, minutes)

	var ring []geo.Coordinate
	if err := g.cache.Get(ctx, key, &ring); err == nil && len(ring) >= 3 {
		return RegionResult{Region: geo.NewPolygonRegion(ring)}
	}

	callCtx, cancel := g.withTimeout(ctx)
	defer cancel()

	result, err := g.execRouting(callCtx, "isochrone", func(ctx context.Context) (interface{}, error) {
		return g.routing.Isochrone(ctx, center, minutes)
	})
	if err != nil {
		recordFallback("isochrone")
		logger.WarnContext(ctx, "isochrone degraded, substituting circle",
			zap.Int("minutes", minutes),
			zap.Float64("radius_m", fallbackRadiusM),
			zap.Error(err))
		return RegionResult{
			Region:   geo.NewCircleRegion(center, fallbackRadiusM),
			Degraded: true,
		}
	}

	polygon := result.(geo.PolygonRegion)
	g.cacheAsync(ctx, "cache-isochrone", key, polygon.Vertices(), cache.TTL.Isochrone())
	return RegionResult{Region: polygon}
}

// CurrentWeather returns the weather code at a coordinate, cached for 15min.
// Failure yields WeatherUnknown and never blocks an estimate.
func (g *Gateway) CurrentWeather(ctx context.Context, c geo.Coordinate) int {
	key := cache.Keys.Weather(c)

	var code int
	if err := g.cache.Get(ctx, key, &code); err == nil {
		return code
	}

	callCtx, cancel := g.withTimeout(ctx)
	defer cancel()

	result, err := g.execWeather(callCtx, "current_weather", func(ctx context.Context) (interface{}, error) {
		return g.weather.CurrentWeatherCode(ctx, c)
	})
	if err != nil {
		recordFallback("weather")
		logger.WarnContext(ctx, "weather lookup degraded", zap.Error(err))
		return WeatherUnknown
	}

	code = result.(int)
	g.cacheAsync(ctx, "cache-weather", key, code, cache.TTL.Weather())
	return code
}

func (g *Gateway) execRouting(ctx context.Context, name string, op resilience.Operation) (interface{}, error) {
	var result interface{}
	err := tracing.TraceExternalAPI(ctx, "geodata", "routing", name, func(ctx context.Context) error {
		var err error
		if g.routingBreaker == nil {
			result, err = op(ctx)
		} else {
			result, err = g.routingBreaker.Execute(ctx, op)
		}
		return err
	})
	return result, err
}

func (g *Gateway) execWeather(ctx context.Context, name string, op resilience.Operation) (interface{}, error) {
	var result interface{}
	err := tracing.TraceExternalAPI(ctx, "geodata", "weather", name, func(ctx context.Context) error {
		var err error
		if g.weatherBreaker == nil {
			result, err = op(ctx)
		} else {
			result, err = g.weatherBreaker.Execute(ctx, op)
		}
		return err
	})
	return result, err
}
