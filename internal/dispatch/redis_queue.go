package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisQueueKey = "botgate:queue"

// RedisQueue backs the work queue with a Redis list, surviving restarts and
// allowing multiple gateway nodes to share one pool of workers.
type RedisQueue struct {
	client *redis.Client
}

var _ Queue = (*RedisQueue)(nil)

// NewRedisQueue connects to Redis and verifies the connection.
func NewRedisQueue(addr, password string, db int) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("dispatch: redis queue ping: %w", err)
	}
	return &RedisQueue{client: client}, nil
}

// Enqueue implements Queue.
func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("dispatch: marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, redisQueueKey, data).Err(); err != nil {
		return fmt.Errorf("dispatch: enqueue: %w", err)
	}
	return nil
}

// Dequeue implements Queue. BRPOP is issued with a short timeout in a loop
// so cancellation is observed within a second.
func (q *RedisQueue) Dequeue(ctx context.Context) (Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Job{}, err
		}

		result, err := q.client.BRPop(ctx, time.Second, redisQueueKey).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return Job{}, fmt.Errorf("dispatch: dequeue: %w", err)
		}
		// BRPOP returns [key, value].
		if len(result) != 2 {
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			return Job{}, fmt.Errorf("dispatch: unmarshal job: %w", err)
		}
		return job, nil
	}
}

// Close implements Queue.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}
