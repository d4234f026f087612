package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const urlKeyPrefix = "fileurl:"

// URLCache remembers temporary URLs minted for file identifiers. Entries must
// expire before the URLs they hold do.
type URLCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewURLCache returns a cache over client. A nil client or zero ttl yields a
// cache that always misses.
func NewURLCache(client *redis.Client, ttl time.Duration) *URLCache {
	return &URLCache{client: client, ttl: ttl}
}

func (c *URLCache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// GetMany returns the cached URL for each id that has one.
func (c *URLCache) GetMany(ctx context.Context, ids []string) (map[string]string, error) {
	found := make(map[string]string, len(ids))
	if !c.enabled() || len(ids) == 0 {
		return found, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = urlKeyPrefix + id
	}

	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return found, err
	}
	for i, v := range vals {
		if s, ok := v.(string); ok && s != "" {
			found[ids[i]] = s
		}
	}
	return found, nil
}

// SetMany stores urls keyed by file identifier.
func (c *URLCache) SetMany(ctx context.Context, urls map[string]string) error {
	if !c.enabled() || len(urls) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for id, url := range urls {
		pipe.Set(ctx, urlKeyPrefix+id, url, c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Forget drops cached URLs, e.g. after the underlying blob was replaced.
func (c *URLCache) Forget(ctx context.Context, ids ...string) error {
	if !c.enabled() || len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = urlKeyPrefix + id
	}
	return c.client.Del(ctx, keys...).Err()
}
