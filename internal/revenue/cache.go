package revenue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache is a read-through store for vendor summaries.
type Cache struct {
	redis redis.Cmdable
	ttl   time.Duration
}

func NewCache(client redis.Cmdable, ttl time.Duration) *Cache {
	return &Cache{redis: client, ttl: ttl}
}

func cacheKey(vendorID uuid.UUID) string {
	return "revenue:vendor:" + vendorID.String()
}

// Get reports found=false on a miss.
func (c *Cache) Get(ctx context.Context, vendorID uuid.UUID) (Summary, bool, error) {
	raw, err := c.redis.Get(ctx, cacheKey(vendorID)).Result()
	if errors.Is(err, redis.Nil) {
		return Summary{}, false, nil
	}
	if err != nil {
		return Summary{}, false, err
	}

	var summary Summary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		return Summary{}, false, err
	}
	return summary, true, nil
}

func (c *Cache) Set(ctx context.Context, summary Summary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, cacheKey(summary.VendorID), string(payload), c.ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, vendorID uuid.UUID) error {
	return c.redis.Del(ctx, cacheKey(vendorID)).Err()
}
