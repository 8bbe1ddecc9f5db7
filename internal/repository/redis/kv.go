package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/rocketshoes/pkg/database"
)

// KV implements repository.KV on Redis strings.
type KV struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a Redis-backed store. A positive ttl is applied on every Set,
// so idle keys expire ttl after their last write; zero keeps keys forever.
func New(client *redis.Client, ttl time.Duration) *KV {
	return &KV{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves the value stored under key.
func (r *KV) Get(ctx context.Context, key string) (value string, found bool, err error) {
	ctx, end := database.TraceQuery(ctx, "redis", "kv.get", "GET")
	defer func() { end(err) }()

	value, err = r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key with the configured TTL.
func (r *KV) Set(ctx context.Context, key, value string) (err error) {
	ctx, end := database.TraceQuery(ctx, "redis", "kv.set", "SET")
	defer func() { end(err) }()

	if err = r.client.Set(ctx, key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (r *KV) Delete(ctx context.Context, key string) (err error) {
	ctx, end := database.TraceQuery(ctx, "redis", "kv.delete", "DEL")
	defer func() { end(err) }()

	if err = r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Ping checks the connection to Redis.
func (r *KV) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
