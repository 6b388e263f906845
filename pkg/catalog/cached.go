package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/example/bloomcart/pkg/models"
	"github.com/example/bloomcart/pkg/repository"
	"go.uber.org/zap"
)

const keyPrefix = "flower:"

// Source is any flower lookup, typically the Mongo catalog.
type Source interface {
	Lookup(ctx context.Context, flowerID string) (models.Flower, error)
}

// JSONCache is the subset of the Redis repository the catalog cache needs.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, expiration time.Duration) error
}

// CachedCatalog serves lookups from the cache and falls through to next on a miss.
// Cache failures are logged and never fail the lookup; not-found results are not cached.
type CachedCatalog struct {
	next   Source
	cache  JSONCache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedCatalog(next Source, cache JSONCache, ttl time.Duration, logger *zap.Logger) *CachedCatalog {
	return &CachedCatalog{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (c *CachedCatalog) Lookup(ctx context.Context, flowerID string) (models.Flower, error) {
	key := keyPrefix + flowerID

	var flower models.Flower
	err := c.cache.GetJSON(ctx, key, &flower)
	if err == nil {
		return flower, nil
	}
	if !errors.Is(err, repository.ErrCacheMiss) {
		c.logger.Warn("Catalog cache read failed", zap.String("key", key), zap.Error(err))
	}

	flower, err = c.next.Lookup(ctx, flowerID)
	if err != nil {
		return models.Flower{}, err
	}

	if err := c.cache.SetJSON(ctx, key, flower, c.ttl); err != nil {
		c.logger.Warn("Catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
	return flower, nil
}
