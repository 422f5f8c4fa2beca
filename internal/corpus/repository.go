package corpus

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/camroute/fare-engine/pkg/database"
)

// Repository handles database operations for the trip corpus
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new corpus repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const upsertPointSQL = `
	INSERT INTO points (id, label, latitude, longitude,
	       neighborhood, city, district, department, h3_cell)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (latitude, longitude) DO UPDATE SET
		label        = COALESCE(NULLIF(points.label, ''), EXCLUDED.label),
		neighborhood = COALESCE(NULLIF(points.neighborhood, ''), EXCLUDED.neighborhood),
		city         = COALESCE(NULLIF(points.city, ''), EXCLUDED.city),
		district     = COALESCE(NULLIF(points.district, ''), EXCLUDED.district),
		department   = COALESCE(NULLIF(points.department, ''), EXCLUDED.department),
		h3_cell      = COALESCE(NULLIF(points.h3_cell, ''), EXCLUDED.h3_cell),
		updated_at   = NOW()
	RETURNING id, created_at, updated_at
`

const insertTripSQL = `
	INSERT INTO trips (id, depart_id, arrival_id, distance_m, price_cfa,
	       time_of_day, weather_code, zone_type, user_congestion,
	       platform_congestion, sinuosity, turn_count, turn_force,
	       road_class, duration_s)
	VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10, $11, $12, $13,
	       NULLIF($14, ''), $15)
	RETURNING created_at
`

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// upsertPoint inserts a point or, when a point already exists at the same
// coordinates, enriches its still-empty administrative fields. Known admin
// values are never overwritten. The point ID and timestamps are populated on
// return.
func upsertPoint(ctx context.Context, q rowQuerier, p *Point) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	err := q.QueryRow(ctx, upsertPointSQL,
		p.ID, p.Label, p.Latitude, p.Longitude,
		p.Neighborhood, p.City, p.District, p.Department, p.H3Cell,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}
	return nil
}

func insertTrip(ctx context.Context, q rowQuerier, t *Trip) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	err := q.QueryRow(ctx, insertTripSQL,
		t.ID, t.DepartID, t.ArrivalID, t.DistanceM, t.PriceCFA,
		t.TimeOfDay, t.WeatherCode, t.ZoneType, t.UserCongestion,
		t.PlatformCongestion, t.Sinuosity, t.TurnCount, t.TurnForce,
		t.RoadClass, t.DurationS,
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert trip: %w", err)
	}
	return nil
}

// InsertTripWithPoints stores a contributed trip together with both endpoint
// points in one transaction, retried on transient failures. The point upserts
// and the trip insert commit or roll back together; IDs and timestamps are
// populated on return.
func (r *Repository) InsertTripWithPoints(ctx context.Context, t *Trip) error {
	if t.Depart == nil || t.Arrival == nil {
		return fmt.Errorf("trip is missing its endpoint points")
	}

	err := database.RetryableTransaction(ctx, r.db, func(tx pgx.Tx) error {
		if err := upsertPoint(ctx, tx, t.Depart); err != nil {
			return err
		}
		if err := upsertPoint(ctx, tx, t.Arrival); err != nil {
			return err
		}
		t.DepartID = t.Depart.ID
		t.ArrivalID = t.Arrival.ID
		return insertTrip(ctx, tx, t)
	})
	if err != nil {
		return fmt.Errorf("failed to store trip: %w", err)
	}
	return nil
}

// GetPointByID retrieves a point
func (r *Repository) GetPointByID(ctx context.Context, id uuid.UUID) (*Point, error) {
	query := `
		SELECT id, label, latitude, longitude, neighborhood, city, district,
		       department, h3_cell, created_at, updated_at
		FROM points WHERE id = $1
	`
	p := &Point{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Label, &p.Latitude, &p.Longitude,
		&p.Neighborhood, &p.City, &p.District, &p.Department,
		&p.H3Cell, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get point: %w", err)
	}
	return p, nil
}

const tripColumns = `
	t.id, t.depart_id, t.arrival_id, t.distance_m, t.price_cfa,
	COALESCE(t.time_of_day, ''), t.weather_code, t.zone_type,
	t.user_congestion, t.platform_congestion, t.sinuosity,
	t.turn_count, t.turn_force, COALESCE(t.road_class, ''), t.duration_s,
	t.created_at,
	pd.id, pd.label, pd.latitude, pd.longitude, pd.neighborhood, pd.city,
	pd.district, pd.department, pd.h3_cell, pd.created_at, pd.updated_at,
	pa.id, pa.label, pa.latitude, pa.longitude, pa.neighborhood, pa.city,
	pa.district, pa.department, pa.h3_cell, pa.created_at, pa.updated_at
`

func scanTrip(row pgx.Row) (*Trip, error) {
	t := &Trip{Depart: &Point{}, Arrival: &Point{}}
	err := row.Scan(
		&t.ID, &t.DepartID, &t.ArrivalID, &t.DistanceM, &t.PriceCFA,
		&t.TimeOfDay, &t.WeatherCode, &t.ZoneType,
		&t.UserCongestion, &t.PlatformCongestion, &t.Sinuosity,
		&t.TurnCount, &t.TurnForce, &t.RoadClass, &t.DurationS,
		&t.CreatedAt,
		&t.Depart.ID, &t.Depart.Label, &t.Depart.Latitude, &t.Depart.Longitude,
		&t.Depart.Neighborhood, &t.Depart.City, &t.Depart.District,
		&t.Depart.Department, &t.Depart.H3Cell, &t.Depart.CreatedAt, &t.Depart.UpdatedAt,
		&t.Arrival.ID, &t.Arrival.Label, &t.Arrival.Latitude, &t.Arrival.Longitude,
		&t.Arrival.Neighborhood, &t.Arrival.City, &t.Arrival.District,
		&t.Arrival.Department, &t.Arrival.H3Cell, &t.Arrival.CreatedAt, &t.Arrival.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetTripByID retrieves a trip with both endpoint points
func (r *Repository) GetTripByID(ctx context.Context, id uuid.UUID) (*Trip, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM trips t
		JOIN points pd ON pd.id = t.depart_id
		JOIN points pa ON pa.id = t.arrival_id
		WHERE t.id = $1
	`, tripColumns)

	t, err := database.RetryableQueryRow(ctx, r.db, query, []interface{}{id}, scanTrip)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return t, nil
}

// CandidatesByArea retrieves trips whose depart and arrival points both fall
// in the requested administrative areas. Each side matches on neighborhood
// when one is given, otherwise on district. Context filtering happens in
// memory afterwards, so one query serves every tier.
func (r *Repository) CandidatesByArea(ctx context.Context, depart, arrival AreaRef, limit int) ([]*Trip, error) {
	if depart.Empty() || arrival.Empty() {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM trips t
		JOIN points pd ON pd.id = t.depart_id
		JOIN points pa ON pa.id = t.arrival_id
		WHERE (($1 != '' AND pd.neighborhood = $1) OR ($1 = '' AND pd.district = $2))
		  AND (($3 != '' AND pa.neighborhood = $3) OR ($3 = '' AND pa.district = $4))
		ORDER BY t.created_at DESC
		LIMIT $5
	`, tripColumns)

	args := []interface{}{
		depart.Neighborhood, depart.District,
		arrival.Neighborhood, arrival.District,
		limit,
	}
	trips, err := database.RetryableQuery(ctx, r.db, query, args, scanTrips)
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate trips: %w", err)
	}
	return trips, nil
}

func scanTrips(rows pgx.Rows) ([]*Trip, error) {
	trips := make([]*Trip, 0)
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

// ListTrips lists trips newest first with pagination
func (r *Repository) ListTrips(ctx context.Context, limit, offset int) ([]*Trip, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM trips`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count trips: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM trips t
		JOIN points pd ON pd.id = t.depart_id
		JOIN points pa ON pa.id = t.arrival_id
		ORDER BY t.created_at DESC
		LIMIT $1 OFFSET $2
	`, tripColumns)

	trips, err := database.RetryableQuery(ctx, r.db, query, []interface{}{limit, offset}, scanTrips)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list trips: %w", err)
	}
	return trips, total, nil
}

// TripCount returns the corpus size
func (r *Repository) TripCount(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM trips`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count trips: %w", err)
	}
	return count, nil
}

// PointCount returns the number of distinct recorded endpoints
func (r *Repository) PointCount(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM points`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return count, nil
}

// AvgPricePerKm returns the corpus-wide mean of price over distance, in CFA
// per kilometre, with the number of trips it was computed over. Trips under
// 100 m are excluded: their ratio is noise.
func (r *Repository) AvgPricePerKm(ctx context.Context) (float64, int64, error) {
	query := `
		SELECT COALESCE(AVG(price_cfa / (distance_m / 1000.0)), 0), COUNT(*)
		FROM trips
		WHERE distance_m >= 100
	`
	var avg float64
	var count int64
	if err := r.db.QueryRow(ctx, query).Scan(&avg, &count); err != nil {
		return 0, 0, fmt.Errorf("failed to compute average price per km: %w", err)
	}
	return avg, count, nil
}

// MeanPriceByArea returns the mean observed price of trips touching the
// given area at either end, with the sample size. The finest known level
// wins: neighborhood, then district, then city. A zero sample is not an
// error; the caller decides whether the aggregate is usable.
func (r *Repository) MeanPriceByArea(ctx context.Context, area AreaRef) (float64, int64, error) {
	if area.Neighborhood == "" && area.District == "" && area.City == "" {
		return 0, 0, nil
	}

	query := `
		SELECT COALESCE(AVG(t.price_cfa), 0), COUNT(*)
		FROM trips t
		JOIN points pd ON pd.id = t.depart_id
		JOIN points pa ON pa.id = t.arrival_id
		WHERE (($1 != '' AND (pd.neighborhood = $1 OR pa.neighborhood = $1))
		    OR ($1 = '' AND $2 != '' AND (pd.district = $2 OR pa.district = $2))
		    OR ($1 = '' AND $2 = '' AND (pd.city = $3 OR pa.city = $3)))
	`
	var mean float64
	var count int64
	if err := r.db.QueryRow(ctx, query, area.Neighborhood, area.District, area.City).Scan(&mean, &count); err != nil {
		return 0, 0, fmt.Errorf("failed to compute area mean price: %w", err)
	}
	return mean, count, nil
}

// TopAreas aggregates trip counts and mean prices per depart neighborhood
func (r *Repository) TopAreas(ctx context.Context, limit int) ([]AreaStat, error) {
	query := `
		SELECT pd.neighborhood, MAX(pd.city), COUNT(*), AVG(t.price_cfa)
		FROM trips t
		JOIN points pd ON pd.id = t.depart_id
		WHERE pd.neighborhood != ''
		GROUP BY pd.neighborhood
		ORDER BY COUNT(*) DESC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate areas: %w", err)
	}
	defer rows.Close()

	stats := make([]AreaStat, 0)
	for rows.Next() {
		var s AreaStat
		if err := rows.Scan(&s.Neighborhood, &s.City, &s.TripCount, &s.MeanPriceCFA); err != nil {
			return nil, fmt.Errorf("failed to scan area aggregate: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, nil
}

// IsNotFound reports whether an error is the driver's empty-result marker
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
