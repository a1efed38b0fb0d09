package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ariefcatur/go-rental-scheduling/internal/redisx"
	"github.com/ariefcatur/go-rental-scheduling/internal/scheduling"
	"github.com/redis/go-redis/v9"
	"time"
)

type Checker interface {
	Check(ctx context.Context, q Query) (Result, error)
}

// Cache is a short-lived read-through cache for public availability lookups.
// The conflict detector always goes to Calculator directly. Queries that
// exclude an order are never cached.
type Cache struct {
	Checker Checker
	Redis   *redis.Client
	TTL     time.Duration // zero means redisx.TTLAvailability, negative disables
}

func (c *Cache) Check(ctx context.Context, q Query) (Result, error) {
	ttl := c.TTL
	if ttl == 0 {
		ttl = redisx.TTLAvailability
	}
	if c.Redis == nil || ttl < 0 || q.ExcludeOrderID != "" {
		return c.Checker.Check(ctx, q)
	}
	key := fmt.Sprintf(redisx.KeyAvailability, q.ItemID,
		q.Interval.From.Format(scheduling.DateLayout), q.Interval.To.Format(scheduling.DateLayout))

	if s, err := c.Redis.Get(ctx, key).Bytes(); err == nil && len(s) > 0 {
		var r Result
		if json.Unmarshal(s, &r) == nil {
			return r, nil
		}
	}

	r, err := c.Checker.Check(ctx, q)
	if err != nil {
		return Result{}, err
	}
	if b, err := json.Marshal(r); err == nil {
		_ = c.Redis.Set(ctx, key, b, ttl).Err()
	}
	return r, nil
}
