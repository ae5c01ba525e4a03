package cleardarksky

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PageCache keeps the most recent clock page per location so that checks
// run close together do not refetch it.
type PageCache interface {
	Get(ctx context.Context, location string) ([]byte, bool, error)
	Set(ctx context.Context, location string, page []byte) error
}

const cacheKeyPrefix = "darksky:page:"

// RedisCache stores pages in redis with a fixed TTL. Only one page per
// location is kept.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, location string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, cacheKeyPrefix+location).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", location, err)
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, location string, page []byte) error {
	if err := c.client.Set(ctx, cacheKeyPrefix+location, page, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", location, err)
	}
	return nil
}
