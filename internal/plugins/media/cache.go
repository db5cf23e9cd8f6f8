package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// urlCacheKeyPrefix namespaces the scanned path maps in Redis.
const urlCacheKeyPrefix = "pandora:media:urls:"

// ScannedPaths is the result of a directory scan for one image token.
type ScannedPaths struct {
	Original  string `json:"original,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	WebP      string `json:"webp,omitempty"`
}

// PathCache memoizes scan results per image id. A miss returns (nil, nil).
type PathCache interface {
	Get(ctx context.Context, imageID int64) (*ScannedPaths, error)
	Set(ctx context.Context, imageID int64, paths ScannedPaths) error
	Invalidate(ctx context.Context, imageID int64) error
}

type redisPathCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisPathCache stores scan results in Redis with the given TTL. A nil
// client yields a cache that never hits.
func NewRedisPathCache(rdb *redis.Client, ttl time.Duration) PathCache {
	if rdb == nil {
		return NopPathCache{}
	}
	return &redisPathCache{rdb: rdb, ttl: ttl}
}

func pathCacheKey(id int64) string {
	return urlCacheKeyPrefix + strconv.FormatInt(id, 10)
}

func (c *redisPathCache) Get(ctx context.Context, imageID int64) (*ScannedPaths, error) {
	data, err := c.rdb.Get(ctx, pathCacheKey(imageID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading scanned paths from Redis: %w", err)
	}

	var p ScannedPaths
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshaling scanned paths: %w", err)
	}
	return &p, nil
}

func (c *redisPathCache) Set(ctx context.Context, imageID int64, paths ScannedPaths) error {
	data, err := json.Marshal(paths)
	if err != nil {
		return fmt.Errorf("marshaling scanned paths: %w", err)
	}
	if err := c.rdb.Set(ctx, pathCacheKey(imageID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("storing scanned paths in Redis: %w", err)
	}
	return nil
}

func (c *redisPathCache) Invalidate(ctx context.Context, imageID int64) error {
	if err := c.rdb.Del(ctx, pathCacheKey(imageID)).Err(); err != nil {
		return fmt.Errorf("deleting scanned paths from Redis: %w", err)
	}
	return nil
}

// NopPathCache never stores anything.
type NopPathCache struct{}

func (NopPathCache) Get(context.Context, int64) (*ScannedPaths, error) { return nil, nil }
func (NopPathCache) Set(context.Context, int64, ScannedPaths) error { return nil }
func (NopPathCache) Invalidate(context.Context, int64) error { return nil }
