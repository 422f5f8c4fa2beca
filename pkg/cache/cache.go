package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camroute/fare-engine/pkg/geo"
	"github.com/camroute/fare-engine/pkg/logger"
	redisclient "github.com/camroute/fare-engine/pkg/redis"
	"go.uber.org/zap"
)

// Manager handles caching operations with JSON serialization
type Manager struct {
	redis *redisclient.Client
}

// NewManager creates a new cache manager
func NewManager(redis *redisclient.Client) *Manager {
	return &Manager{redis: redis}
}

// Get retrieves a cached value and unmarshals it into result
func (m *Manager) Get(ctx context.Context, key string, result interface{}) error {
	data, err := m.redis.GetString(ctx, key)
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(data), result)
}

// Set marshals and caches a value with expiration
func (m *Manager) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return m.redis.SetWithExpiration(ctx, key, string(data), ttl)
}

// GetOrSet retrieves from cache or executes fn and caches the result.
// The write happens on a detached context so a slow Redis never delays the
// request path. Staleness up to the TTL is acceptable for every value the
// engine caches; they are physical or weather facts that degrade gracefully.
func (m *Manager) GetOrSet(ctx context.Context, key string, ttl time.Duration, result interface{}, fn func() (interface{}, error)) error {
	err := m.Get(ctx, key, result)
	if err == nil {
		return nil // Cache hit
	}

	data, err := fn()
	if err != nil {
		return err
	}

	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.Set(cacheCtx, key, data, ttl); err != nil {
			logger.Warn("failed to cache value", zap.String("key", key), zap.Error(err))
		}
	}()

	// Marshal the result into the result pointer
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return json.Unmarshal(jsonData, result)
}

// Delete removes keys from cache
func (m *Manager) Delete(ctx context.Context, keys ...string) error {
	return m.redis.Delete(ctx, keys...)
}

// CacheKeys defines the cache key patterns used by the geo data gateway.
// Coordinates are bucketed into H3 cells so that nearby requests share
// entries; the cell resolution per operation is chosen in pkg/geo.
type CacheKeys struct{}

var Keys = CacheKeys{}

// ReverseGeocode returns the cache key for administrative info at a location.
func (k CacheKeys) ReverseGeocode(c geo.Coordinate) string {
	return fmt.Sprintf("geocode:%s", geo.PlaceCell(c))
}

// Isochrone returns the cache key for an isochrone contour.
func (k CacheKeys) Isochrone(c geo.Coordinate, minutes int) string {
	return fmt.Sprintf("isochrone:%s:%d", geo.PlaceCell(c), minutes)
}

// Route returns the cache key for a routed distance/duration pair.
func (k CacheKeys) Route(from, to geo.Coordinate) string {
	return fmt.Sprintf("route:%s:%s", geo.RouteCell(from), geo.RouteCell(to))
}

// Weather returns the cache key for current weather at a location.
func (k CacheKeys) Weather(c geo.Coordinate) string {
	return fmt.Sprintf("weather:%s", geo.WeatherCell(c))
}

// APIKey returns the cache key for an API key lookup.
func (k CacheKeys) APIKey(key string) string {
	return fmt.Sprintf("apikey:%s", key)
}

// CorpusAggregate returns the cache key for a corpus-wide aggregate.
func (k CacheKeys) CorpusAggregate(name string) string {
	return fmt.Sprintf("corpus:agg:%s", name)
}

// TTL defines the per-operation cache lifetimes. Route distances are
// traffic-sensitive and expire faster than the static geographic facts;
// weather turns over fastest.
type CacheTTL struct{}

var TTL = CacheTTL{}

func (t CacheTTL) Weather() time.Duration   { return 15 * time.Minute }
func (t CacheTTL) Route() time.Duration     { return 1 * time.Hour }
func (t CacheTTL) Geocode() time.Duration   { return 24 * time.Hour }
func (t CacheTTL) Isochrone() time.Duration { return 24 * time.Hour }
func (t CacheTTL) APIKey() time.Duration    { return 5 * time.Minute }
func (t CacheTTL) Aggregate() time.Duration { return 15 * time.Minute }
