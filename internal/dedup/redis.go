package dedup

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a dedup store backed by Redis SET NX EX: the server performs
// the check-and-set atomically, so it is safe even if several gateway
// processes share one store.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Deduplicator = (*Redis)(nil)

// NewRedis creates a Redis dedup store and verifies connectivity.
func NewRedis(ctx context.Context, opts *redis.Options, ttl time.Duration) (*Redis, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("dedup: redis ping: %w", err)
	}

	return &Redis{client: client, ttl: ttl}, nil
}

// ShouldProcess implements Deduplicator.
func (r *Redis) ShouldProcess(ctx context.Context, tenantKey string, updateID int64) (bool, error) {
	key := "botgate:dedup:" + tenantKey + ":" + strconv.FormatInt(updateID, 10)
	created, err := r.client.SetNX(ctx, key, 1, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup: redis setnx: %w", err)
	}
	return created, nil
}

// Close releases the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
