package memory

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"tasktracker/internal/core/port"
)

const (
	defaultExpiration = 5 * time.Minute
	cleanupInterval   = 10 * time.Minute
)

type cacheRepository struct {
	cache *cache.Cache
}

func NewCacheRepository() port.CacheRepository {
	return &cacheRepository{cache: cache.New(defaultExpiration, cleanupInterval)}
}

func (c *cacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.DefaultExpiration
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	c.cache.Set(key, stored, ttl)
	return nil
}

func (c *cacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	value, found := c.cache.Get(key)
	if !found {
		return nil, port.ErrCacheMiss
	}

	return value.([]byte), nil
}

func (c *cacheRepository) Delete(ctx context.Context, key string) error {
	c.cache.Delete(key)
	return nil
}

func (c *cacheRepository) DeleteByPrefix(ctx context.Context, prefix string) error {
	for key := range c.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			c.cache.Delete(key)
		}
	}

	return nil
}

func (c *cacheRepository) Close() error {
	c.cache.Flush()
	return nil
}
