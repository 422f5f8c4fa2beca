package apikeys

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/camroute/fare-engine/pkg/database"
)

// Repository handles database operations for API keys
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new API key repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create persists a new API key
func (r *Repository) Create(ctx context.Context, k *APIKey) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	if k.Key == uuid.Nil {
		k.Key = uuid.New()
	}

	query := `
		INSERT INTO api_keys (id, key, name, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, usage_count
	`
	err := r.db.QueryRow(ctx, query, k.ID, k.Key, k.Name, k.IsActive).
		Scan(&k.CreatedAt, &k.UsageCount)
	if err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

// GetByKey retrieves an API key by its key value
func (r *Repository) GetByKey(ctx context.Context, key uuid.UUID) (*APIKey, error) {
	query := `
		SELECT id, key, name, is_active, created_at, last_used, usage_count
		FROM api_keys
		WHERE key = $1
	`
	k, err := database.RetryableQueryRow(ctx, r.db, query, []interface{}{key}, func(row pgx.Row) (*APIKey, error) {
		k := &APIKey{}
		err := row.Scan(
			&k.ID, &k.Key, &k.Name, &k.IsActive,
			&k.CreatedAt, &k.LastUsed, &k.UsageCount,
		)
		return k, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}
	return k, nil
}

// Touch records one use of the key
func (r *Repository) Touch(ctx context.Context, id uuid.UUID) error {
	_, err := database.RetryableExec(ctx, r.db, `
		UPDATE api_keys SET last_used = NOW(), usage_count = usage_count + 1
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to touch api key: %w", err)
	}
	return nil
}
