package corpus

import (
	"context"
	"time"

	"github.com/camroute/fare-engine/pkg/cache"
)

// maxCandidates caps one similarity search; the corpus for a single
// area pair rarely approaches it.
const maxCandidates = 500

// topAreaLimit bounds the per-area aggregate in the stats snapshot.
const topAreaLimit = 20

// Service exposes the trip corpus to the estimation and ingestion paths.
// Aggregates are cached: they feed every fallback estimate and only drift
// as fast as contributions arrive.
type Service struct {
	repo  *Repository
	cache *cache.Manager
}

// NewService creates a new corpus service
func NewService(repo *Repository, cacheManager *cache.Manager) *Service {
	return &Service{repo: repo, cache: cacheManager}
}

// Candidates returns the trips joining the two administrative areas,
// newest first.
func (s *Service) Candidates(ctx context.Context, depart, arrival AreaRef) ([]*Trip, error) {
	return s.repo.CandidatesByArea(ctx, depart, arrival, maxCandidates)
}

// ListTrips lists trips with pagination
func (s *Service) ListTrips(ctx context.Context, limit, offset int) ([]*Trip, int64, error) {
	return s.repo.ListTrips(ctx, limit, offset)
}

// TripCount returns the corpus size
func (s *Service) TripCount(ctx context.Context) (int64, error) {
	return s.repo.TripCount(ctx)
}

type pricePerKmAggregate struct {
	Avg   float64 `json:"avg"`
	Count int64   `json:"count"`
}

// AvgPricePerKm returns the cached corpus-wide mean price per kilometre and
// the sample size behind it.
func (s *Service) AvgPricePerKm(ctx context.Context) (float64, int64, error) {
	var agg pricePerKmAggregate
	err := s.cache.GetOrSet(ctx, cache.Keys.CorpusAggregate("price_per_km"), cache.TTL.Aggregate(), &agg,
		func() (interface{}, error) {
			avg, count, err := s.repo.AvgPricePerKm(ctx)
			if err != nil {
				return nil, err
			}
			return pricePerKmAggregate{Avg: avg, Count: count}, nil
		})
	if err != nil {
		return 0, 0, err
	}
	return agg.Avg, agg.Count, nil
}

type areaMeanAggregate struct {
	Mean  float64 `json:"mean"`
	Count int64   `json:"count"`
}

// MeanPriceByArea returns the cached mean price of trips touching the area.
func (s *Service) MeanPriceByArea(ctx context.Context, area AreaRef) (float64, int64, error) {
	name := "area_mean:" + area.Neighborhood
	if area.Neighborhood == "" {
		name = "district_mean:" + area.District
		if area.District == "" {
			name = "city_mean:" + area.City
		}
	}

	var agg areaMeanAggregate
	err := s.cache.GetOrSet(ctx, cache.Keys.CorpusAggregate(name), cache.TTL.Aggregate(), &agg,
		func() (interface{}, error) {
			mean, count, err := s.repo.MeanPriceByArea(ctx, area)
			if err != nil {
				return nil, err
			}
			return areaMeanAggregate{Mean: mean, Count: count}, nil
		})
	if err != nil {
		return 0, 0, err
	}
	return agg.Mean, agg.Count, nil
}

// Stats assembles the corpus snapshot served by the stats endpoint.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	err := s.cache.GetOrSet(ctx, cache.Keys.CorpusAggregate("stats"), cache.TTL.Aggregate(), &stats,
		func() (interface{}, error) {
			trips, err := s.repo.TripCount(ctx)
			if err != nil {
				return nil, err
			}
			points, err := s.repo.PointCount(ctx)
			if err != nil {
				return nil, err
			}
			avg, _, err := s.repo.AvgPricePerKm(ctx)
			if err != nil {
				return nil, err
			}
			areas, err := s.repo.TopAreas(ctx, topAreaLimit)
			if err != nil {
				return nil, err
			}
			return &Stats{
				TripCount:     trips,
				PointCount:    points,
				AvgPricePerKm: avg,
				TopAreas:      areas,
				ComputedAt:    time.Now().UTC(),
			}, nil
		})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
