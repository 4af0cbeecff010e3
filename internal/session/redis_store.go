package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisVolatile implements the volatile substrate with one Redis hash per client.
type RedisVolatile struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisVolatile connects to Redis and verifies the connection.
func NewRedisVolatile(redisURL string, ttl time.Duration) (*RedisVolatile, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisVolatileWithClient(client, ttl), nil
}

// NewRedisVolatileWithClient creates a store from an existing Redis client
func NewRedisVolatileWithClient(client *redis.Client, ttl time.Duration) *RedisVolatile {
	if ttl <= 0 {
		ttl = DefaultCookieMaxAge
	}
	return &RedisVolatile{
		client: client,
		prefix: "volatile:",
		ttl:    ttl,
	}
}

func (s *RedisVolatile) key(clientID string) string {
	return s.prefix + clientID
}

func (s *RedisVolatile) For(clientID string) Substrate {
	return &redisSubstrate{store: s, key: s.key(clientID)}
}

// Close closes the Redis connection
func (s *RedisVolatile) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisVolatile) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

type redisSubstrate struct {
	store *RedisVolatile
	key   string
}

func (s *redisSubstrate) Name() string { return "redis" }

func (s *redisSubstrate) Get(ctx context.Context, field string) (string, bool, error) {
	value, err := s.store.client.HGet(ctx, s.key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: redis get %s: %v", ErrSubstrate, field, err)
	}
	return value, value != "", nil
}

func (s *redisSubstrate) Set(ctx context.Context, field, value string) error {
	pipe := s.store.client.TxPipeline()
	pipe.HSet(ctx, s.key, field, value)
	pipe.Expire(ctx, s.key, s.store.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: redis set %s: %v", ErrSubstrate, field, err)
	}
	return nil
}

func (s *redisSubstrate) Delete(ctx context.Context, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.store.client.HDel(ctx, s.key, fields...).Err(); err != nil {
		return fmt.Errorf("%w: redis delete: %v", ErrSubstrate, err)
	}
	return nil
}
