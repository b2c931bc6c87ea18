package internal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKV keeps entries in Redis under a key prefix, for dashboards that share
// chat state across machines.
type RedisKV struct {
	client *redis.Client
	prefix string
}

// OpenRedisKV connects to redisURL and verifies the connection
func OpenRedisKV(ctx context.Context, redisURL, prefix string) (*RedisKV, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, &StorageError{Backend: "redis", Op: "open", Key: redisURL, Err: fmt.Errorf("parse redis url: %w", err)}
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, &StorageError{Backend: "redis", Op: "open", Key: redisURL, Err: fmt.Errorf("connect to redis: %w", err)}
	}

	return NewRedisKV(client, prefix), nil
}

// NewRedisKV wraps an existing client
func NewRedisKV(client *redis.Client, prefix string) *RedisKV {
	return &RedisKV{client: client, prefix: prefix}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &StorageError{Backend: "redis", Op: "get", Key: key, Err: err}
	}
	return val, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return &StorageError{Backend: "redis", Op: "set", Key: key, Err: err}
	}
	return nil
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return &StorageError{Backend: "redis", Op: "delete", Key: key, Err: err}
	}
	return nil
}

func (r *RedisKV) Close() error {
	return r.client.Close()
}
