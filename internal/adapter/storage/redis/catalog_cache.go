package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"game-economy-service/internal/core/domain"

	"github.com/redis/go-redis/v9"
)

const catalogKey = "catalog:packages"

// CatalogCache implements ports.CatalogCache. The package catalog changes
// rarely, so the active list is cached whole as one JSON blob.
type CatalogCache struct {
	client *redis.Client
}

// NewCatalogCache creates a new CatalogCache.
func NewCatalogCache(client *redis.Client) *CatalogCache {
	return &CatalogCache{client: client}
}

// Get returns the cached catalog, or a nil slice on a miss. Redis errors
// other than a miss are returned so the caller can decide to fall through.
func (c *CatalogCache) Get(ctx context.Context) ([]domain.CurrencyPackage, error) {
	data, err := c.client.Get(ctx, catalogKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get catalog cache: %w", err)
	}

	var packages []domain.CurrencyPackage
	if err := json.Unmarshal(data, &packages); err != nil {
		// Treat a corrupt blob as a miss; the next Set overwrites it.
		return nil, nil
	}
	return packages, nil
}

// Set stores the catalog with the given TTL.
func (c *CatalogCache) Set(ctx context.Context, packages []domain.CurrencyPackage, ttl time.Duration) error {
	data, err := json.Marshal(packages)
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	if err := c.client.Set(ctx, catalogKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("set catalog cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached catalog.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, catalogKey).Err(); err != nil {
		return fmt.Errorf("invalidate catalog cache: %w", err)
	}
	return nil
}
