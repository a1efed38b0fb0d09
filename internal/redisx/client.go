package redisx

import (
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"time"
)

var ErrLocked = errors.New("resource is locked")

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

func Exists(ctx context.Context, rdb *redis.Client, key string) (bool, error) {
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// release deletes the lock only if it still holds our token.
var release = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Locker hands out short-lived exclusive locks keyed by work order.
type Locker struct {
	Redis *redis.Client
	TTL   time.Duration
}

// Lock takes the lock for orderID or fails with ErrLocked. The returned
// func releases it; the TTL bounds how long a crashed holder can block.
func (l *Locker) Lock(ctx context.Context, orderID string) (func(), error) {
	ttl := l.TTL
	if ttl <= 0 {
		ttl = TTLOrderLock
	}
	key := fmt.Sprintf(KeyOrderLock, orderID)
	token := uuid.NewString()
	ok, err := l.Redis.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: work order %s", ErrLocked, orderID)
	}
	return func() {
		_ = release.Run(context.Background(), l.Redis, []string{key}, token).Err()
	}, nil
}
