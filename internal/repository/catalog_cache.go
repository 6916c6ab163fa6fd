package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const catalogCachePrefix = "ticket-workflow:catalog:"

// cachedCatalogRepository serves display names from Redis before falling
// back to the wrapped repository. Redis failures are logged and ignored.
type cachedCatalogRepository struct {
	CatalogRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedCatalogRepository wraps inner with a Redis name cache. A nil
// client or non-positive ttl returns inner unchanged.
func NewCachedCatalogRepository(inner CatalogRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) CatalogRepository {
	if client == nil || ttl <= 0 {
		return inner
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &cachedCatalogRepository{CatalogRepository: inner, client: client, ttl: ttl, logger: logger}
}

func (r *cachedCatalogRepository) StatusName(ctx context.Context, id int64) (string, bool, error) {
	return r.cached(ctx, "status", id, r.CatalogRepository.StatusName)
}

func (r *cachedCatalogRepository) RoleName(ctx context.Context, id int64) (string, bool, error) {
	return r.cached(ctx, "role", id, r.CatalogRepository.RoleName)
}

func (r *cachedCatalogRepository) cached(ctx context.Context, kind string, id int64, load func(context.Context, int64) (string, bool, error)) (string, bool, error) {
	key := fmt.Sprintf("%s%s:%d", catalogCachePrefix, kind, id)

	name, err := r.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		return name, true, nil
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
	}

	name, ok, err := load(ctx, id)
	if err != nil || !ok {
		return name, ok, err
	}
	if err := r.client.Set(ctx, key, name, r.ttl).Err(); err != nil {
		r.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
	return name, true, nil
}
