package apikeys

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/camroute/fare-engine/pkg/async"
	"github.com/camroute/fare-engine/pkg/cache"
	"github.com/camroute/fare-engine/pkg/common"
	"github.com/camroute/fare-engine/pkg/logger"
)

// RepositoryInterface defines the persistence operations the service needs
type RepositoryInterface interface {
	GetByKey(ctx context.Context, key uuid.UUID) (*APIKey, error)
	Touch(ctx context.Context, id uuid.UUID) error
}

// Service handles API key authentication
type Service struct {
	repo  RepositoryInterface
	cache *cache.Manager
}

// NewService creates a new API key service
func NewService(repo RepositoryInterface, cacheManager *cache.Manager) *Service {
	return &Service{repo: repo, cache: cacheManager}
}

// Authenticate resolves a raw key value to an active API key. Resolution is
// cached briefly so the hot path does not hit the database per request;
// deactivation therefore takes up to the cache TTL to propagate. Usage
// accounting happens off the request path.
func (s *Service) Authenticate(ctx context.Context, rawKey string) (*APIKey, error) {
	keyValue, err := uuid.Parse(rawKey)
	if err != nil {
		return nil, common.NewUnauthorizedError("invalid API key")
	}

	var key APIKey
	err = s.cache.GetOrSet(ctx, cache.Keys.APIKey(rawKey), cache.TTL.APIKey(), &key,
		func() (interface{}, error) {
			k, err := s.repo.GetByKey(ctx, keyValue)
			if err != nil {
				return nil, common.NewUnauthorizedError("unknown API key")
			}
			return k, nil
		})
	if err != nil {
		return nil, common.NewUnauthorizedError("unknown API key")
	}

	if !key.IsActive {
		return nil, common.NewUnauthorizedError("API key is disabled")
	}

	async.Go(ctx, "touch-api-key", func(ctx context.Context) {
		if err := s.repo.Touch(ctx, key.ID); err != nil {
			logger.WarnContext(ctx, "failed to record api key use",
				zap.String("api_key_id", key.ID.String()), zap.Error(err))
		}
	})

	return &key, nil
}
