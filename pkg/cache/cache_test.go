package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camroute/fare-engine/pkg/geo"
	redisclient "github.com/camroute/fare-engine/pkg/redis"
)

type routeFacts struct {
	DistanceM float64 `json:"distance_m"`
	DurationS float64 `json:"duration_s"`
}

func newTestManager(t *testing.T) (*Manager, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	return NewManager(redisclient.NewFromClient(db)), mock
}

func TestManager_Get_Hit(t *testing.T) {
	manager, mock := newTestManager(t)

	mock.ExpectGet("route:a:b").SetVal(`{"distance_m":5200,"duration_s":780}`)

	var got routeFacts
	err := manager.Get(context.Background(), "route:a:b", &got)

	require.NoError(t, err)
	assert.Equal(t, 5200.0, got.DistanceM)
	assert.Equal(t, 780.0, got.DurationS)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_Get_Miss(t *testing.T) {
	manager, mock := newTestManager(t)

	mock.ExpectGet("route:a:b").RedisNil()

	var got routeFacts
	err := manager.Get(context.Background(), "route:a:b", &got)

	assert.Error(t, err)
}

func TestManager_Get_InvalidJSON(t *testing.T) {
	manager, mock := newTestManager(t)

	mock.ExpectGet("route:a:b").SetVal("not json")

	var got routeFacts
	err := manager.Get(context.Background(), "route:a:b", &got)

	assert.Error(t, err)
}

func TestManager_Set(t *testing.T) {
	manager, mock := newTestManager(t)

	value := routeFacts{DistanceM: 5200, DurationS: 780}
	mock.ExpectSet("route:a:b", `{"distance_m":5200,"duration_s":780}`, time.Hour).SetVal("OK")

	err := manager.Set(context.Background(), "route:a:b", value, time.Hour)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_GetOrSet_Hit_SkipsLoader(t *testing.T) {
	manager, mock := newTestManager(t)

	mock.ExpectGet("weather:cell").SetVal(`2`)

	loaderCalled := false
	var code int
	err := manager.GetOrSet(context.Background(), "weather:cell", TTL.Weather(), &code, func() (interface{}, error) {
		loaderCalled = true
		return 3, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, code)
	assert.False(t, loaderCalled)
}

func TestManager_GetOrSet_Miss_ComputesAndCaches(t *testing.T) {
	manager, mock := newTestManager(t)

	mock.ExpectGet("weather:cell").RedisNil()
	mock.ExpectSet("weather:cell", "3", TTL.Weather()).SetVal("OK")

	var code int
	err := manager.GetOrSet(context.Background(), "weather:cell", TTL.Weather(), &code, func() (interface{}, error) {
		return 3, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, code)

	// The cache write is asynchronous
	assert.Eventually(t, func() bool {
		return mock.ExpectationsWereMet() == nil
	}, time.Second, 10*time.Millisecond)
}

func TestManager_GetOrSet_LoaderError(t *testing.T) {
	manager, mock := newTestManager(t)

	mock.ExpectGet("weather:cell").RedisNil()

	loaderErr := errors.New("provider unavailable")
	var code int
	err := manager.GetOrSet(context.Background(), "weather:cell", TTL.Weather(), &code, func() (interface{}, error) {
		return nil, loaderErr
	})

	assert.ErrorIs(t, err, loaderErr)
}

func TestManager_Delete(t *testing.T) {
	manager, mock := newTestManager(t)

	mock.ExpectDel("route:a:b", "weather:cell").SetVal(2)

	err := manager.Delete(context.Background(), "route:a:b", "weather:cell")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheKeys_BucketNearbyCoordinates(t *testing.T) {
	douala := geo.Coordinate{Lat: 4.0511, Lon: 9.7679}
	yaounde := geo.Coordinate{Lat: 3.8480, Lon: 11.5021}

	assert.Equal(t, Keys.ReverseGeocode(douala), Keys.ReverseGeocode(douala))
	assert.NotEqual(t, Keys.ReverseGeocode(douala), Keys.ReverseGeocode(yaounde))

	assert.Equal(t, Keys.Route(douala, yaounde), Keys.Route(douala, yaounde))
	assert.NotEqual(t, Keys.Route(douala, yaounde), Keys.Route(yaounde, douala))
}

func TestCacheKeys_IsochroneIncludesMinutes(t *testing.T) {
	c := geo.Coordinate{Lat: 4.0511, Lon: 9.7679}

	narrow := Keys.Isochrone(c, 2)
	wide := Keys.Isochrone(c, 5)

	assert.NotEqual(t, narrow, wide)
}

func TestCacheKeys_APIKey(t *testing.T) {
	assert.Equal(t, "apikey:abc-123", Keys.APIKey("abc-123"))
}

func TestCacheTTL(t *testing.T) {
	assert.Equal(t, 15*time.Minute, TTL.Weather())
	assert.Equal(t, time.Hour, TTL.Route())
	assert.Equal(t, 24*time.Hour, TTL.Geocode())
	assert.Equal(t, 24*time.Hour, TTL.Isochrone())
}
