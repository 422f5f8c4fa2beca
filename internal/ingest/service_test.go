package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camroute/fare-engine/internal/corpus"
	"github.com/camroute/fare-engine/internal/geodata"
	"github.com/camroute/fare-engine/pkg/common"
	"github.com/camroute/fare-engine/pkg/geo"
)

type fakeGateway struct {
	route    *geodata.Route
	routeErr error
	info     *geodata.AdministrativeInfo
	weather  int
}

func (f *fakeGateway) ReverseGeocode(ctx context.Context, c geo.Coordinate) (*geodata.AdministrativeInfo, error) {
	if f.info == nil {
		return &geodata.AdministrativeInfo{}, nil
	}
	return f.info, nil
}

func (f *fakeGateway) DetailedRoute(ctx context.Context, from, to geo.Coordinate) (*geodata.Route, error) {
	if f.routeErr != nil {
		return nil, f.routeErr
	}
	return f.route, nil
}

func (f *fakeGateway) CurrentWeather(ctx context.Context, c geo.Coordinate) int {
	return f.weather
}

type fakeRepo struct {
	points []*corpus.Point
	trips  []*corpus.Trip
}

func (f *fakeRepo) InsertTripWithPoints(ctx context.Context, t *corpus.Trip) error {
	for _, p := range []*corpus.Point{t.Depart, t.Arrival} {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		f.points = append(f.points, p)
	}
	t.DepartID = t.Depart.ID
	t.ArrivalID = t.Arrival.ID
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	f.trips = append(f.trips, t)
	return nil
}

func (f *fakeRepo) GetTripByID(ctx context.Context, id uuid.UUID) (*corpus.Trip, error) {
	for _, t := range f.trips {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeRepo) ListTrips(ctx context.Context, limit, offset int) ([]*corpus.Trip, int64, error) {
	return f.trips, int64(len(f.trips)), nil
}

var (
	testDepart  = geo.Coordinate{Lat: 3.8547, Lon: 11.5021}
	testArrival = geo.Coordinate{Lat: 3.8667, Lon: 11.5174}
)

func validRequest() *TripRequest {
	return &TripRequest{
		DepartLatitude:   testDepart.Lat,
		DepartLongitude:  testDepart.Lon,
		ArrivalLatitude:  testArrival.Lat,
		ArrivalLongitude: testArrival.Lon,
		PriceCFA:         500,
	}
}

func testRoute() *geodata.Route {
	straight := geo.HaversineMeters(testDepart, testArrival)
	return &geodata.Route{
		DistanceM: straight * 1.2,
		DurationS: 600,
		Steps: []geodata.RouteStep{
			{DistanceM: straight * 1.2, Class: "primary",
				Maneuver: geodata.Maneuver{Type: "turn", BearingBefore: 10, BearingAfter: 100}},
		},
		Congestion: []string{"moderate"},
	}
}

func newTestService(gateway *fakeGateway, repo *fakeRepo) *Service {
	s := NewService(gateway, repo)
	s.now = func() time.Time {
		return time.Date(2026, 3, 9, 8, 30, 0, 0, time.UTC) // morning
	}
	return s
}

func TestService_SubmitTrip(t *testing.T) {
	gateway := &fakeGateway{
		route: testRoute(),
		info: &geodata.AdministrativeInfo{
			Label:        "Carrefour Ekounou",
			Neighborhood: "Ekounou",
			City:         "Yaoundé",
			District:     "Yaoundé IV",
		},
		weather: geodata.WeatherLightRain,
	}
	repo := &fakeRepo{}
	service := newTestService(gateway, repo)

	trip, err := service.SubmitTrip(context.Background(), validRequest())

	require.NoError(t, err)
	require.Len(t, repo.points, 2)
	require.Len(t, repo.trips, 1)

	assert.Equal(t, "Ekounou", repo.points[0].Neighborhood)
	assert.NotEmpty(t, repo.points[0].H3Cell)

	assert.Equal(t, 500.0, trip.PriceCFA)
	assert.Equal(t, corpus.TimeMorning, trip.TimeOfDay)
	require.NotNil(t, trip.WeatherCode)
	assert.Equal(t, geodata.WeatherLightRain, *trip.WeatherCode)
	require.NotNil(t, trip.Sinuosity)
	assert.InDelta(t, 1.2, *trip.Sinuosity, 1e-6)
	require.NotNil(t, trip.TurnCount)
	assert.Equal(t, 1, *trip.TurnCount)
	assert.Equal(t, "primary", trip.RoadClass)
	require.NotNil(t, trip.PlatformCongestion)
	assert.Equal(t, 40.0, *trip.PlatformCongestion)
}

func TestService_SubmitTrip_KeepsProvidedContext(t *testing.T) {
	gateway := &fakeGateway{route: testRoute(), weather: geodata.WeatherStorm}
	repo := &fakeRepo{}
	service := newTestService(gateway, repo)

	clear := geodata.WeatherClear
	req := validRequest()
	req.TimeOfDay = corpus.TimeNight
	req.WeatherCode = &clear

	trip, err := service.SubmitTrip(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, corpus.TimeNight, trip.TimeOfDay)
	require.NotNil(t, trip.WeatherCode)
	assert.Equal(t, geodata.WeatherClear, *trip.WeatherCode)
}

func TestService_SubmitTrip_IdenticalEndpoints(t *testing.T) {
	service := newTestService(&fakeGateway{route: testRoute()}, &fakeRepo{})

	req := validRequest()
	req.ArrivalLatitude = req.DepartLatitude
	req.ArrivalLongitude = req.DepartLongitude

	_, err := service.SubmitTrip(context.Background(), req)

	require.Error(t, err)
	appErr, ok := err.(*common.AppError)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.Code)
}

func TestService_SubmitTrip_UnrecognizedPrice(t *testing.T) {
	service := newTestService(&fakeGateway{route: testRoute()}, &fakeRepo{})

	req := validRequest()
	req.PriceCFA = 537

	_, err := service.SubmitTrip(context.Background(), req)

	require.Error(t, err)
	appErr, ok := err.(*common.AppError)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.Code)
}

func TestService_SubmitTrip_NoRoute(t *testing.T) {
	gateway := &fakeGateway{routeErr: common.ErrNoRouteFound}
	repo := &fakeRepo{}
	service := newTestService(gateway, repo)

	_, err := service.SubmitTrip(context.Background(), validRequest())

	require.Error(t, err)
	assert.Empty(t, repo.trips)
}

func TestService_GetTrip(t *testing.T) {
	gateway := &fakeGateway{route: testRoute(), weather: geodata.WeatherUnknown}
	repo := &fakeRepo{}
	service := newTestService(gateway, repo)

	stored, err := service.SubmitTrip(context.Background(), validRequest())
	require.NoError(t, err)

	trip, err := service.GetTrip(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, trip.ID)

	_, err = service.GetTrip(context.Background(), uuid.New())
	require.Error(t, err)
	appErr, ok := err.(*common.AppError)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.Code)
}

func TestService_SubmitTrip_RoutingDegraded(t *testing.T) {
	gateway := &fakeGateway{
		routeErr: errors.New("mapbox timeout"),
		weather:  geodata.WeatherUnknown,
	}
	repo := &fakeRepo{}
	service := newTestService(gateway, repo)

	trip, err := service.SubmitTrip(context.Background(), validRequest())

	require.NoError(t, err)
	assert.InDelta(t, geo.HaversineMeters(testDepart, testArrival), trip.DistanceM, 1e-6)
	assert.Nil(t, trip.Sinuosity)
	assert.Nil(t, trip.TurnCount)
	assert.Nil(t, trip.WeatherCode)
	assert.Empty(t, trip.RoadClass)
}
