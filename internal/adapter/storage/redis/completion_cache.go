package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CompletionCache implements ports.CompletionCache. It is the fast-path
// duplicate check for purchase completion; the purchase row status in
// PostgreSQL remains the authority, so a Redis flush only costs a round
// trip to the locked row, never a double credit.
type CompletionCache struct {
	client *redis.Client
}

// NewCompletionCache creates a new CompletionCache.
func NewCompletionCache(client *redis.Client) *CompletionCache {
	return &CompletionCache{client: client}
}

func completionKey(purchaseID uuid.UUID) string {
	return "purchase:completed:" + purchaseID.String()
}

// IsCompleted reports whether the purchase is marked completed in the cache.
func (c *CompletionCache) IsCompleted(ctx context.Context, purchaseID uuid.UUID) (bool, error) {
	n, err := c.client.Exists(ctx, completionKey(purchaseID)).Result()
	if err != nil {
		return false, fmt.Errorf("check completion cache: %w", err)
	}
	return n > 0, nil
}

// MarkCompleted records the completion with a TTL. Called after the database
// transaction commits, never before.
func (c *CompletionCache) MarkCompleted(ctx context.Context, purchaseID uuid.UUID, ttl time.Duration) error {
	if err := c.client.Set(ctx, completionKey(purchaseID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("mark completion cache: %w", err)
	}
	return nil
}
