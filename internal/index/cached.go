package index

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"floatchat/internal/logger"
	"floatchat/internal/model"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "floatchat:ctx:"

// NewRedisClient creates a Redis client for the context cache.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
}

// Cached memoizes Search results of another Index in Redis. Redis errors
// never fail a call; the wrapped index is used instead.
type Cached struct {
	next  Index
	redis *redis.Client
	ttl   time.Duration
	log   logger.Logger
}

// NewCached wraps next with a Redis cache.
func NewCached(next Index, client *redis.Client, ttl time.Duration, log logger.Logger) *Cached {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cached{
		next:  next,
		redis: client,
		ttl:   ttl,
		log:   log.With(map[string]interface{}{"component": "context_cache"}),
	}
}

func cacheKey(collection, text string, k int) string {
	return fmt.Sprintf("%s%s:%d:%s", cacheKeyPrefix, collection, k, strings.ToLower(strings.TrimSpace(text)))
}

// Search implements Index.
func (c *Cached) Search(ctx context.Context, collection, text string, k int) ([]model.ContextItem, error) {
	key := cacheKey(collection, text, k)
	if val, err := c.redis.Get(ctx, key).Result(); err == nil {
		var items []model.ContextItem
		if err := json.Unmarshal([]byte(val), &items); err == nil {
			return items, nil
		}
	} else if err != redis.Nil {
		c.log.Warn("cache read failed", map[string]interface{}{"error": err.Error(), "collection": collection})
	}

	items, err := c.next.Search(ctx, collection, text, k)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(items); err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.Warn("cache write failed", map[string]interface{}{"error": err.Error(), "collection": collection})
		}
	}
	return items, nil
}

// Upsert implements Index and drops every cached search of the collection.
func (c *Cached) Upsert(ctx context.Context, collection string, docs []model.Document) (int, []string) {
	success, errs := c.next.Upsert(ctx, collection, docs)
	if success > 0 {
		if err := c.invalidate(ctx, collection); err != nil {
			c.log.Warn("cache invalidation failed", map[string]interface{}{"error": err.Error(), "collection": collection})
		}
	}
	return success, errs
}

// Count implements Index.
func (c *Cached) Count(ctx context.Context, collection string) (int64, error) {
	return c.next.Count(ctx, collection)
}

func (c *Cached) invalidate(ctx context.Context, collection string) error {
	iter := c.redis.Scan(ctx, 0, cacheKeyPrefix+collection+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...).Err()
}
