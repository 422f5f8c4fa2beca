package estimate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camroute/fare-engine/internal/corpus"
	"github.com/camroute/fare-engine/internal/geodata"
	"github.com/camroute/fare-engine/pkg/common"
	"github.com/camroute/fare-engine/pkg/geo"
)

type fakeEngineGateway struct {
	info           *geodata.AdministrativeInfo
	facts          geodata.RouteFacts
	factsErr       error
	regionDegraded bool
	matrixPerDestM float64
	weather        int
}

func (f *fakeEngineGateway) ReverseGeocode(ctx context.Context, c geo.Coordinate) (*geodata.AdministrativeInfo, error) {
	if f.info == nil {
		return &geodata.AdministrativeInfo{}, nil
	}
	return f.info, nil
}

func (f *fakeEngineGateway) RouteFacts(ctx context.Context, from, to geo.Coordinate) (geodata.RouteFacts, error) {
	return f.facts, f.factsErr
}

func (f *fakeEngineGateway) RegionAround(ctx context.Context, center geo.Coordinate, minutes int, fallbackRadiusM float64) geodata.RegionResult {
	return geodata.RegionResult{
		Region:   geo.NewCircleRegion(center, fallbackRadiusM),
		Degraded: f.regionDegraded,
	}
}

func (f *fakeEngineGateway) DistanceMatrix(ctx context.Context, source geo.Coordinate, destinations []geo.Coordinate) ([]float64, bool) {
	distances := make([]float64, len(destinations))
	for i := range distances {
		distances[i] = f.matrixPerDestM
	}
	return distances, false
}

func (f *fakeEngineGateway) CurrentWeather(ctx context.Context, c geo.Coordinate) int {
	return f.weather
}

type fakeCorpusReader struct {
	trips     []*corpus.Trip
	avgPerKm  float64
	avgCount  int64
	areaMean  float64
	areaCount int64
}

func (f *fakeCorpusReader) Candidates(ctx context.Context, depart, arrival corpus.AreaRef) ([]*corpus.Trip, error) {
	return f.trips, nil
}

func (f *fakeCorpusReader) AvgPricePerKm(ctx context.Context) (float64, int64, error) {
	return f.avgPerKm, f.avgCount, nil
}

func (f *fakeCorpusReader) MeanPriceByArea(ctx context.Context, area corpus.AreaRef) (float64, int64, error) {
	return f.areaMean, f.areaCount, nil
}

func defaultGateway() *fakeEngineGateway {
	return &fakeEngineGateway{
		info: &geodata.AdministrativeInfo{Neighborhood: "Ekounou", City: "Yaoundé"},
		facts: geodata.RouteFacts{
			DistanceM:     4000,
			DurationS:     700,
			DurationKnown: true,
		},
		weather: geodata.WeatherUnknown,
	}
}

func estimateRequest() *EstimateRequest {
	return &EstimateRequest{
		DepartLatitude:   departA.Lat,
		DepartLongitude:  departA.Lon,
		ArrivalLatitude:  arrivalA.Lat,
		ArrivalLongitude: arrivalA.Lon,
		TimeOfDay:        corpus.TimeMorning,
		WeatherCode:      intPtr(0),
	}
}

func newEngineService(gateway *fakeEngineGateway, reader *fakeCorpusReader, classifier BandClassifier) *Service {
	if classifier == nil {
		classifier = &fakeClassifier{err: common.ErrInsufficientCorpus}
	}
	s := NewService(gateway, reader, classifier, testConfig())
	s.now = func() time.Time {
		return time.Date(2026, 3, 9, 8, 30, 0, 0, time.UTC) // morning
	}
	return s
}

func narrowCorpus() *fakeCorpusReader {
	prices := []float64{200, 200, 250, 250, 250, 300, 300, 300}
	trips := make([]*corpus.Trip, len(prices))
	for i, p := range prices {
		trips[i] = makeTrip(offset(departA, 0.0003), offset(arrivalA, 0.0003), 4000, p,
			withContext(corpus.TimeMorning, 0))
	}
	return &fakeCorpusReader{trips: trips}
}

func TestService_Estimate_ExactMatch(t *testing.T) {
	service := newEngineService(defaultGateway(), narrowCorpus(), nil)

	result, err := service.Estimate(context.Background(), estimateRequest())

	require.NoError(t, err)
	assert.Equal(t, "exact", result.Status)
	assert.Equal(t, 0.93, result.Reliability)
	assert.Equal(t, 8, result.TripsUsed)
	assert.Equal(t, 250.0, result.PriceMean)
	assert.Equal(t, 200.0, result.PriceMin)
	assert.Equal(t, 300.0, result.PriceMax)
	assert.Equal(t, 4000.0, result.RouteDistanceM)
	assert.Equal(t, 700.0, result.RouteDurationS)
	assert.Empty(t, result.Adjustments)
	assert.Nil(t, result.Fallback)
	assert.NotNil(t, result.Scenarios.OppositeWeather)
	assert.NotNil(t, result.Scenarios.OppositeTimeOfDay)
}

func TestService_Estimate_WideMatch(t *testing.T) {
	gateway := defaultGateway()
	gateway.matrixPerDestM = 100

	trips := []*corpus.Trip{
		makeTrip(offset(departA, 0.0010), offset(arrivalA, 0.0010), 4800, 250,
			withContext(corpus.TimeMorning, 0)),
		makeTrip(offset(departA, 0.0010), offset(arrivalA, 0.0010), 5000, 300,
			withContext(corpus.TimeMorning, 0)),
	}
	service := newEngineService(gateway, &fakeCorpusReader{trips: trips}, nil)

	result, err := service.Estimate(context.Background(), estimateRequest())

	require.NoError(t, err)
	assert.Equal(t, "similar", result.Status)
	assert.Equal(t, 0.78, result.Reliability)
	assert.Equal(t, 2, result.TripsUsed)
	require.Len(t, result.Adjustments, 2)
	assert.Equal(t, 200.0, result.Adjustments[0].ExtraDistanceM)
	for _, p := range []float64{result.PriceMean, result.PriceMin, result.PriceMax} {
		assert.True(t, IsBand(p))
	}
}

func TestService_Estimate_ContextRelaxedMatch(t *testing.T) {
	trips := []*corpus.Trip{
		makeTrip(offset(departA, 0.0003), offset(arrivalA, 0.0003), 4000, 250,
			withContext(corpus.TimeNight, 0)),
		makeTrip(offset(departA, 0.0003), offset(arrivalA, 0.0003), 4100, 250,
			withContext(corpus.TimeNight, 0)),
	}
	service := newEngineService(defaultGateway(), &fakeCorpusReader{trips: trips}, nil)

	result, err := service.Estimate(context.Background(), estimateRequest())

	require.NoError(t, err)
	assert.Equal(t, "similar-relaxed", result.Status)
	assert.Equal(t, 0.68, result.Reliability)
	require.Len(t, result.Adjustments, 2)
	// Night-recorded trips repriced for a morning query lose the surcharge
	assert.Equal(t, -50.0, result.Adjustments[0].ContextSurcharge)
	assert.Equal(t, 200.0, result.PriceMean)
}

func TestService_Estimate_FallbackWhenNoCandidates(t *testing.T) {
	service := newEngineService(defaultGateway(), &fakeCorpusReader{}, nil)

	result, err := service.Estimate(context.Background(), estimateRequest())

	require.NoError(t, err)
	assert.Equal(t, "unknown", result.Status)
	assert.Equal(t, 0.50, result.Reliability)
	assert.Zero(t, result.TripsUsed)
	require.NotNil(t, result.Fallback)
	assert.True(t, result.Fallback.Degraded)
	assert.Equal(t, 300.0, result.PriceMean)
	assert.Equal(t, result.PriceMean, result.PriceMin)
	assert.Equal(t, result.PriceMean, result.PriceMax)

	// Scenario recomputation under the flipped time lands on the night tariff
	require.NotNil(t, result.Scenarios.OppositeTimeOfDay)
	assert.Equal(t, 350.0, *result.Scenarios.OppositeTimeOfDay)
}

func TestService_Estimate_FallbackBlend(t *testing.T) {
	reader := &fakeCorpusReader{
		avgPerKm:  75,
		avgCount:  240,
		areaMean:  480,
		areaCount: 35,
	}
	service := newEngineService(defaultGateway(), reader, &fakeClassifier{band: 400})

	result, err := service.Estimate(context.Background(), estimateRequest())

	require.NoError(t, err)
	assert.Equal(t, "unknown", result.Status)
	require.NotNil(t, result.Fallback)
	assert.False(t, result.Fallback.Degraded)
	assert.Equal(t, 400.0, result.PriceMean)
}

func TestService_Estimate_IdenticalEndpoints(t *testing.T) {
	service := newEngineService(defaultGateway(), &fakeCorpusReader{}, nil)

	req := estimateRequest()
	req.ArrivalLatitude = req.DepartLatitude
	req.ArrivalLongitude = req.DepartLongitude

	_, err := service.Estimate(context.Background(), req)

	require.Error(t, err)
	appErr, ok := err.(*common.AppError)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.Code)
}

func TestService_Estimate_NoRoute(t *testing.T) {
	gateway := defaultGateway()
	gateway.factsErr = common.ErrNoRouteFound
	service := newEngineService(gateway, &fakeCorpusReader{}, nil)

	_, err := service.Estimate(context.Background(), estimateRequest())

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNoRouteFound)
}

func TestService_Estimate_DegradedGeometryStillAnswers(t *testing.T) {
	gateway := defaultGateway()
	gateway.regionDegraded = true
	gateway.facts.Degraded = true
	gateway.facts.DurationKnown = false

	service := newEngineService(gateway, narrowCorpus(), nil)

	result, err := service.Estimate(context.Background(), estimateRequest())

	require.NoError(t, err)
	assert.Equal(t, "exact", result.Status)
	assert.Contains(t, result.Degradations, "haversine_distance")
	assert.Contains(t, result.Degradations, "narrow_region_circle")
	assert.Zero(t, result.RouteDurationS)
}

func TestService_Estimate_DefaultsTimeOfDayFromClock(t *testing.T) {
	service := newEngineService(defaultGateway(), narrowCorpus(), nil)

	req := estimateRequest()
	req.TimeOfDay = ""

	result, err := service.Estimate(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, corpus.TimeMorning, result.TimeOfDay)
	assert.Equal(t, "exact", result.Status)
}
