package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/camroute/fare-engine/internal/corpus"
	"github.com/camroute/fare-engine/internal/estimate"
	"github.com/camroute/fare-engine/internal/geodata"
	"github.com/camroute/fare-engine/pkg/common"
	"github.com/camroute/fare-engine/pkg/geo"
	"github.com/camroute/fare-engine/pkg/logger"
)

// GeoGateway is the slice of the geo facade trip ingestion needs.
type GeoGateway interface {
	ReverseGeocode(ctx context.Context, c geo.Coordinate) (*geodata.AdministrativeInfo, error)
	DetailedRoute(ctx context.Context, from, to geo.Coordinate) (*geodata.Route, error)
	CurrentWeather(ctx context.Context, c geo.Coordinate) int
}

// RepositoryInterface defines the corpus persistence ingestion depends on.
type RepositoryInterface interface {
	InsertTripWithPoints(ctx context.Context, t *corpus.Trip) error
	GetTripByID(ctx context.Context, id uuid.UUID) (*corpus.Trip, error)
	ListTrips(ctx context.Context, limit, offset int) ([]*corpus.Trip, int64, error)
}

// Service accepts contributed trips, enriches them with route analysis and
// administrative context, and persists them into the corpus.
type Service struct {
	gateway GeoGateway
	repo    RepositoryInterface
	now     func() time.Time
}

// NewService creates a new ingestion service
func NewService(gateway GeoGateway, repo RepositoryInterface) *Service {
	return &Service{
		gateway: gateway,
		repo:    repo,
		now:     time.Now,
	}
}

// SubmitTrip validates, enriches and stores one contributed trip. Route
// enrichment degrades to straight-line distance when routing is unavailable;
// only identical endpoints and a provider-confirmed absence of any route are
// rejected.
func (s *Service) SubmitTrip(ctx context.Context, req *TripRequest) (*corpus.Trip, error) {
	depart := req.Depart()
	arrival := req.Arrival()

	if depart.Equal(arrival) {
		return nil, common.NewValidationError("depart and arrival must differ")
	}
	if !estimate.IsBand(req.PriceCFA) {
		return nil, common.NewValidationError("price is not a recognized fare amount")
	}

	enrichment, err := s.analyzeRoute(ctx, depart, arrival)
	if err != nil {
		return nil, err
	}

	departPoint, arrivalPoint := s.resolvePoints(ctx, req)

	trip := &corpus.Trip{
		Depart:             departPoint,
		Arrival:            arrivalPoint,
		DistanceM:          enrichment.DistanceM,
		PriceCFA:           req.PriceCFA,
		TimeOfDay:          req.TimeOfDay,
		WeatherCode:        req.WeatherCode,
		ZoneType:           req.ZoneType,
		UserCongestion:     req.UserCongestion,
		PlatformCongestion: enrichment.PlatformCongestion,
		Sinuosity:          enrichment.Sinuosity,
		TurnCount:          enrichment.TurnCount,
		TurnForce:          enrichment.TurnForce,
		RoadClass:          enrichment.RoadClass,
		DurationS:          enrichment.DurationS,
	}

	if trip.TimeOfDay == "" {
		trip.TimeOfDay = corpus.TimeOfDayFor(s.now())
	}
	if trip.WeatherCode == nil {
		if code := s.gateway.CurrentWeather(ctx, depart); code != geodata.WeatherUnknown {
			trip.WeatherCode = &code
		}
	}

	if err := s.repo.InsertTripWithPoints(ctx, trip); err != nil {
		return nil, common.NewInternalError("failed to store trip", err)
	}

	return trip, nil
}

// analyzeRoute routes the trip and derives the stored metrics. When routing
// fails for any reason other than a confirmed NoRoute, the trip keeps its
// straight-line distance and loses the route-derived fields.
func (s *Service) analyzeRoute(ctx context.Context, depart, arrival geo.Coordinate) (Enrichment, error) {
	route, err := s.gateway.DetailedRoute(ctx, depart, arrival)
	if err != nil {
		if errors.Is(err, common.ErrNoRouteFound) {
			return Enrichment{}, common.NewNoRouteError("no drivable route between depart and arrival")
		}
		logger.WarnContext(ctx, "route enrichment unavailable, storing straight-line distance",
			zap.Error(err))
		return Enrichment{DistanceM: geo.HaversineMeters(depart, arrival)}, nil
	}
	return enrichFromRoute(route, depart, arrival), nil
}

// resolvePoints reverse-geocodes both endpoints concurrently and builds the
// corpus points. Geocoding failure leaves the administrative fields empty;
// the contributed label wins over the geocoded one.
func (s *Service) resolvePoints(ctx context.Context, req *TripRequest) (*corpus.Point, *corpus.Point) {
	depart := req.Depart()
	arrival := req.Arrival()

	var departInfo, arrivalInfo *geodata.AdministrativeInfo
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		departInfo = s.geocode(ctx, depart)
	}()
	go func() {
		defer wg.Done()
		arrivalInfo = s.geocode(ctx, arrival)
	}()
	wg.Wait()

	return buildPoint(depart, req.DepartLabel, departInfo),
		buildPoint(arrival, req.ArrivalLabel, arrivalInfo)
}

func (s *Service) geocode(ctx context.Context, c geo.Coordinate) *geodata.AdministrativeInfo {
	info, err := s.gateway.ReverseGeocode(ctx, c)
	if err != nil {
		logger.WarnContext(ctx, "reverse geocode unavailable for contributed point",
			zap.Float64("lat", c.Lat), zap.Float64("lon", c.Lon), zap.Error(err))
		return &geodata.AdministrativeInfo{}
	}
	return info
}

func buildPoint(c geo.Coordinate, label string, info *geodata.AdministrativeInfo) *corpus.Point {
	if label == "" {
		label = info.Label
	}
	return &corpus.Point{
		Label:        label,
		Latitude:     c.Lat,
		Longitude:    c.Lon,
		Neighborhood: info.Neighborhood,
		City:         info.City,
		District:     info.District,
		Department:   info.Department,
		H3Cell:       geo.CorpusCell(c),
	}
}

// GetTrip retrieves one stored trip
func (s *Service) GetTrip(ctx context.Context, id uuid.UUID) (*corpus.Trip, error) {
	trip, err := s.repo.GetTripByID(ctx, id)
	if err != nil {
		if corpus.IsNotFound(err) {
			return nil, common.NewNotFoundError("trip not found", err)
		}
		return nil, common.NewInternalError("failed to get trip", err)
	}
	return trip, nil
}

// ListTrips lists stored trips newest first with pagination
func (s *Service) ListTrips(ctx context.Context, limit, offset int) ([]*corpus.Trip, int64, error) {
	return s.repo.ListTrips(ctx, limit, offset)
}
