package ratelimit

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisStore shares failure windows between instances. Each key is a
// counter that expires when its window ends.
type RedisStore struct {
	client *redis.Client
	rate   Rate
	prefix string
}

// NewRedisStore creates a Redis backed store.
func NewRedisStore(client *redis.Client, rate Rate, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		rate:   rate,
		prefix: prefix,
	}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + key
}

// Allow implements Store.
func (s *RedisStore) Allow(ctx context.Context, key string) (Decision, error) {
	pipe := s.client.Pipeline()
	getCmd := pipe.Get(ctx, s.key(key))
	ttlCmd := pipe.PTTL(ctx, s.key(key))

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Decision{Allowed: true}, fmt.Errorf("rate limit lookup failed: %w", err)
	}

	count, err := getCmd.Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return decide(s.rate, 0, 0), nil
		}
		return Decision{Allowed: true}, fmt.Errorf("rate limit counter unreadable: %w", err)
	}

	retryAfter := ttlCmd.Val()
	if retryAfter < 0 {
		retryAfter = s.rate.Window
	}
	return decide(s.rate, count, retryAfter), nil
}

// Fail implements Store.
func (s *RedisStore) Fail(ctx context.Context, key string) error {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, s.key(key))
	ttl := pipe.PTTL(ctx, s.key(key))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rate limit increment failed: %w", err)
	}

	// A counter without expiry is either new or lost its EXPIRE; either way
	// the window starts now.
	if incr.Val() == 1 || ttl.Val() < 0 {
		if err := s.client.PExpire(ctx, s.key(key), s.rate.Window).Err(); err != nil {
			return fmt.Errorf("rate limit expire failed: %w", err)
		}
	}
	return nil
}
